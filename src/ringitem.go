package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Ring item framing.
 *
 * Description:	Everything that flows through the filter is a "ring item":
 *		a length-prefixed record with a type tag, an optional body
 *		header (event builder timestamp / source id) and a body.
 *
 *		Layout, all little-endian:
 *
 *			uint32	size		Inclusive of itself.
 *			uint32	type
 *			uint32	bodyHeaderSize	0 for no body header,
 *						otherwise its size including
 *						this word.
 *			...	body header	(bodyHeaderSize - 4 bytes)
 *			...	body
 *
 *		The filter only ever looks inside PHYSICS_EVENT bodies.
 *		Everything else is carried around as opaque bytes so that
 *		forwarded items come out byte-identical.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Ring item type tags.
const (
	BEGIN_RUN           uint32 = 1
	END_RUN             uint32 = 2
	PAUSE_RUN           uint32 = 3
	RESUME_RUN          uint32 = 4
	ABNORMAL_ENDRUN     uint32 = 5
	PACKET_TYPES        uint32 = 10
	MONITORED_VARIABLES uint32 = 11
	RING_FORMAT         uint32 = 12
	PERIODIC_SCALERS    uint32 = 20
	PHYSICS_EVENT       uint32 = 30
	PHYSICS_EVENT_COUNT uint32 = 31
)

const ringItemHeaderSize = 8

// Keep torn input from turning into a giant allocation.
const maxRingItemSize = 16 * 1024 * 1024

var errRingItemTooSmall = errors.New("ring item size smaller than its own header")
var errRingItemTooLarge = errors.New("ring item size is not believable")

// RingItem is one framed record.  Payload is everything after the size and
// type words, body header included, so a forwarded item is byte-identical
// to what came in.
type RingItem struct {
	Type    uint32
	Payload []byte
}

/*------------------------------------------------------------------
 *
 * Name:	ReadRingItem
 *
 * Purpose:	Read exactly one ring item from a stream.
 *
 * Returns:	The item, or io.EOF cleanly between items.  A stream that
 *		ends in the middle of an item yields io.ErrUnexpectedEOF.
 *
 *------------------------------------------------------------------*/

func ReadRingItem(r io.Reader) (*RingItem, error) {
	var header [ringItemHeaderSize]byte

	var _, err = io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	var size = binary.LittleEndian.Uint32(header[0:4])
	var itemType = binary.LittleEndian.Uint32(header[4:8])

	if size < ringItemHeaderSize {
		return nil, fmt.Errorf("%w: size=%d type=%d", errRingItemTooSmall, size, itemType)
	}
	if size > maxRingItemSize {
		return nil, fmt.Errorf("%w: size=%d type=%d", errRingItemTooLarge, size, itemType)
	}

	var payload = make([]byte, size-ringItemHeaderSize)
	_, err = io.ReadFull(r, payload)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Header was complete, payload was not.
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return &RingItem{Type: itemType, Payload: payload}, nil
}

func (item *RingItem) WriteTo(w io.Writer) error {
	var header [ringItemHeaderSize]byte

	binary.LittleEndian.PutUint32(header[0:4], uint32(ringItemHeaderSize+len(item.Payload)))
	binary.LittleEndian.PutUint32(header[4:8], item.Type)

	var _, err = w.Write(header[:])
	if err != nil {
		return err
	}

	_, err = w.Write(item.Payload)
	return err
}

/*------------------------------------------------------------------
 *
 * Name:	Body
 *
 * Purpose:	The body of the item with any body header skipped.
 *
 * Description:	The word after the type is either 0 (no body header) or the
 *		size of the body header including that word.  Items written
 *		by this filter always use 0.
 *
 *------------------------------------------------------------------*/

func (item *RingItem) Body() []byte {
	if len(item.Payload) < 4 {
		return nil
	}

	var bodyHeaderSize = binary.LittleEndian.Uint32(item.Payload[0:4])
	if bodyHeaderSize == 0 {
		return item.Payload[4:]
	}
	if bodyHeaderSize < 4 || int(bodyHeaderSize) > len(item.Payload) {
		// Malformed.  Treat the whole payload as body rather than panic.
		return item.Payload
	}

	return item.Payload[bodyHeaderSize:]
}

// NewPhysicsEvent wraps an event body in a PHYSICS_EVENT item with no body
// header.
func NewPhysicsEvent(body []byte) *RingItem {
	var payload = make([]byte, 4+len(body))
	// bodyHeaderSize word stays zero.
	copy(payload[4:], body)

	return &RingItem{Type: PHYSICS_EVENT, Payload: payload}
}

func itemTypeName(itemType uint32) string {
	switch itemType {
	case BEGIN_RUN:
		return "BEGIN_RUN"
	case END_RUN:
		return "END_RUN"
	case PAUSE_RUN:
		return "PAUSE_RUN"
	case RESUME_RUN:
		return "RESUME_RUN"
	case ABNORMAL_ENDRUN:
		return "ABNORMAL_ENDRUN"
	case PACKET_TYPES:
		return "PACKET_TYPES"
	case MONITORED_VARIABLES:
		return "MONITORED_VARIABLES"
	case RING_FORMAT:
		return "RING_FORMAT"
	case PERIODIC_SCALERS:
		return "PERIODIC_SCALERS"
	case PHYSICS_EVENT:
		return "PHYSICS_EVENT"
	case PHYSICS_EVENT_COUNT:
		return "PHYSICS_EVENT_COUNT"
	}
	return fmt.Sprintf("TYPE_%d", itemType)
}
