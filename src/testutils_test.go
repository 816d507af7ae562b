package mdppst

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureSink collects emitted items so tests can pick them apart.
type captureSink struct {
	items []*RingItem
}

func (s *captureSink) Put(item *RingItem) error {
	s.items = append(s.items, item)
	return nil
}

func (s *captureSink) physicsBodies() [][]byte {
	var bodies [][]byte
	for _, item := range s.items {
		if item.Type == PHYSICS_EVENT {
			bodies = append(bodies, item.Body())
		}
	}
	return bodies
}

// sliceSource feeds a fixed list of items.
type sliceSource struct {
	items []*RingItem
	next  int
}

func (s *sliceSource) NextItem() (*RingItem, error) {
	if s.next >= len(s.items) {
		return nil, nil
	}
	var item = s.items[s.next]
	s.next++
	return item, nil
}

// narrowHit builds a hit whose external scaler sample agrees with its TDC,
// the way a healthy readout looks.
func narrowHit(v *Variant, channel int, tdc uint64) *Hit {
	var ns = float64(tdc) * v.TDCUnitPs / 1000.
	return &Hit{
		ModuleID:          3,
		Channel:           channel,
		ADC:               100,
		TDC:               tdc,
		ExternalTimestamp: uint64(ns/v.ExternalClockPeriodNs) % EXTERNAL_TIMESTAMP_MAX,
	}
}

// driveHit runs one hit through the same calibrate/update/push/step sequence
// the pipeline driver uses.
func driveHit(t *testing.T, clock *ClockReconstructor, st *SoftTrigger, sink DataSink, hit *Hit) {
	t.Helper()

	if !clock.TimeSet() {
		require.True(t, clock.Calibrate(hit), "hit unusable as calibration reference")
	}
	clock.Update(hit)
	st.Push(hit)
	require.NoError(t, st.Step(sink, st.IsTriggerChannel(hit)))
}

// wireHit is one hit's worth of words pulled back out of an emitted narrow
// event body.
type wireHit struct {
	firstWord uint32 // external timestamp (singleton) or time-from-window-start (group)
	channel   int
	moduleID  int
	adc       uint32
	rollover  uint64
	tdc       uint64
}

// parseNarrowBody unpicks an extended-format narrow body, singleton or
// group; the per-hit layout is the same for both.  Takes the loose
// require.TestingT so property tests can call it with a *rapid.T.
func parseNarrowBody(t require.TestingT, body []byte) (int, []wireHit) {
	require.GreaterOrEqual(t, len(body), 2+8)

	var vmusb = binary.LittleEndian.Uint16(body[0:2])
	var stackID = int(vmusb>>13) & 0x7
	var bodySize = int(vmusb & 0x0FFF)

	var n = (bodySize - 4) / rawBodySize
	require.Equal(t, 2+24*n+8, len(body), "body length disagrees with declared size")

	var hits []wireHit
	for i := 0; i < n; i++ {
		var at = 2 + 24*i
		var word = func(k int) uint32 {
			return binary.LittleEndian.Uint32(body[at+4*k : at+4*k+4])
		}

		require.Equal(t, uint32(0), word(1), "pad word")
		var data = word(2)
		require.Equal(t, uint32(0x1), data>>30, "data word tag")
		require.Equal(t, uint32(0), word(3), "pad word")
		var rollover = word(4)
		require.Equal(t, uint32(0x2), rollover>>30, "rollover word tag")
		var timestamp = word(5)
		require.Equal(t, uint32(0x3), timestamp>>30, "timestamp word tag")

		hits = append(hits, wireHit{
			firstWord: word(0),
			channel:   int(data>>18) & 0x1F,
			moduleID:  int(data>>24) & 0x3F,
			adc:       data & 0xFFFF,
			rollover:  uint64(rollover & 0x3FFFFFFF),
			tdc:       uint64(timestamp & 0x3FFFFFFF),
		})
	}

	// Enders.
	var tail = body[2+24*n:]
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(tail[0:4]))
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(tail[4:8]))

	return stackID, hits
}
