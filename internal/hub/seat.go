package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/spock-server/internal/transport"
)

type pumped struct {
	line string
	err  error // only non-fatal read errors travel here
}

// seat wraps a joined connection. One pump goroutine reads it from the moment
// it joins, so a player who hangs up in the waiting room is noticed before a
// session starts. Lines sent while waiting are kept for the session.
type seat struct {
	transport.Conn
	lines chan pumped
	gone  chan struct{}
	err   error // set before gone is closed
}

func newSeat(ctx context.Context, conn transport.Conn) *seat {
	s := &seat{
		Conn:  conn,
		lines: make(chan pumped, 16),
		gone:  make(chan struct{}),
	}
	go s.pump(ctx)
	return s
}

func (s *seat) pump(ctx context.Context) {
	for {
		line, err := s.Conn.ReadMessage(ctx)
		if err != nil && !errors.Is(err, transport.ErrLineTooLong) {
			s.err = err
			close(s.gone)
			return
		}
		select {
		case s.lines <- pumped{line: line, err: err}:
		case <-ctx.Done():
			s.err = ctx.Err()
			close(s.gone)
			return
		}
	}
}

// ReadMessage hands out pumped lines in order, then the error that stopped
// the pump.
func (s *seat) ReadMessage(ctx context.Context) (string, error) {
	select {
	case p := <-s.lines:
		return p.line, p.err
	case <-s.gone:
		select {
		case p := <-s.lines:
			return p.line, p.err
		default:
		}
		return "", s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Gone is closed once the connection can no longer be read.
func (s *seat) Gone() <-chan struct{} { return s.gone }
