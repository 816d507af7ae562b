package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Ring item sinks.
 *
 * Description:	Same URI scheme as sources.  A file sink truncates and
 *		rewrites; a tcp sink connects and streams.  Writes are
 *		blocking, which is where the whole pipeline gets its
 *		backpressure from.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
)

// DataSink is the only view the core has of where items go.
type DataSink interface {
	Put(item *RingItem) error
}

type streamSink struct {
	name   string
	w      *bufio.Writer
	closer io.Closer
}

func (s *streamSink) Put(item *RingItem) error {
	var err = item.WriteTo(s.w)
	if err == nil {
		// Flush per item so an online consumer sees events as they
		// close, not when the buffer happens to fill.
		err = s.w.Flush()
	}
	if err != nil {
		return fmt.Errorf("writing to %s: %w", s.name, err)
	}
	return nil
}

func (s *streamSink) Close() error {
	var err = s.w.Flush()
	var closeErr = s.closer.Close()
	if err != nil {
		return err
	}
	return closeErr
}

/*------------------------------------------------------------------
 *
 * Name:	OpenSink
 *
 * Purpose:	Turn an output URI into a concrete data sink.
 *
 *------------------------------------------------------------------*/

func OpenSink(uri string) (DataSink, error) {
	var scheme, rest, err = splitRingURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		var f, openErr = os.Create(rest)
		if openErr != nil {
			return nil, fmt.Errorf("creating ring sink: %w", openErr)
		}
		return &streamSink{name: uri, w: bufio.NewWriter(f), closer: f}, nil
	case "tcp":
		var conn, dialErr = net.Dial("tcp", rest)
		if dialErr != nil {
			return nil, fmt.Errorf("connecting to ring sink: %w", dialErr)
		}
		return &streamSink{name: uri, w: bufio.NewWriter(conn), closer: conn}, nil
	}

	return nil, fmt.Errorf("%w: %q", errBadURI, uri)
}
