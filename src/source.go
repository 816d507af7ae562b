package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Ring item sources.
 *
 * Description:	Sources are addressed by URI:
 *
 *			file:/path/to/run-0042-00.evt
 *			file:///path/to/run-0042-00.evt
 *			tcp://daqhost:31300
 *
 *		A file source is a run file of back-to-back ring items and
 *		is exhausted at EOF.  A tcp source connects to a host
 *		streaming ring items and blocks while the ring is quiet, so
 *		for online data the filter just never exits.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// DataSource is the only view the core has of where items come from.
// NextItem blocks until an item is available and returns nil on a cleanly
// exhausted source.
type DataSource interface {
	NextItem() (*RingItem, error)
}

var errBadURI = errors.New("URI must look like file:/path or tcp://host:port")

/*------------------------------------------------------------------
 *
 * Name:	splitRingURI
 *
 * Purpose:	Split a ring buffer URI into scheme and rest.
 *
 *------------------------------------------------------------------*/

func splitRingURI(uri string) (string, string, error) {
	var scheme, rest, found = strings.Cut(uri, ":")
	if !found || scheme == "" || rest == "" {
		return "", "", fmt.Errorf("%w: %q", errBadURI, uri)
	}

	switch scheme {
	case "file":
		// file:/path, file://path and file:///path all mean a local
		// path; the "authority" form has an empty host.
		var path = strings.TrimPrefix(rest, "//")
		if path == "" {
			return "", "", fmt.Errorf("%w: %q", errBadURI, uri)
		}
		if !strings.HasPrefix(path, "/") && strings.HasPrefix(rest, "//") {
			path = "/" + path
		}
		return scheme, path, nil
	case "tcp":
		var hostport = strings.TrimPrefix(rest, "//")
		var _, _, err = net.SplitHostPort(hostport)
		if err != nil {
			return "", "", fmt.Errorf("%w: %q: %s", errBadURI, uri, err)
		}
		return scheme, hostport, nil
	}

	return "", "", fmt.Errorf("%w: unknown scheme %q", errBadURI, scheme)
}

type streamSource struct {
	name   string
	r      *bufio.Reader
	closer io.Closer
}

func (s *streamSource) NextItem() (*RingItem, error) {
	var item, err = ReadRingItem(s.r)
	if errors.Is(err, io.EOF) {
		// Cleanly exhausted.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from %s: %w", s.name, err)
	}
	return item, nil
}

func (s *streamSource) Close() error {
	return s.closer.Close()
}

/*------------------------------------------------------------------
 *
 * Name:	OpenSource
 *
 * Purpose:	Turn an input URI into a concrete data source.
 *
 *------------------------------------------------------------------*/

func OpenSource(uri string) (DataSource, error) {
	var scheme, rest, err = splitRingURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		var f, openErr = os.Open(rest)
		if openErr != nil {
			return nil, fmt.Errorf("opening ring source: %w", openErr)
		}
		return &streamSource{name: uri, r: bufio.NewReader(f), closer: f}, nil
	case "tcp":
		var conn, dialErr = net.Dial("tcp", rest)
		if dialErr != nil {
			return nil, fmt.Errorf("connecting to ring source: %w", dialErr)
		}
		return &streamSource{name: uri, r: bufio.NewReader(conn), closer: conn}, nil
	}

	return nil, fmt.Errorf("%w: %q", errBadURI, uri)
}
