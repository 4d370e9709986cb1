// Package transport provides the participant connections the round
// coordinator reads from and writes to. Every source, whether a TCP socket,
// a websocket or the local console, is a Conn carrying one protocol message
// per ReadMessage/WriteMessage call.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/coder/websocket"
)

// ErrLineTooLong reports an oversized inbound message that was discarded.
// The connection is still usable.
var ErrLineTooLong = errors.New("line too long")

// MaxLineLength bounds a single inbound message.
const MaxLineLength = 1024

// Conn is a participant's message source and sink. ReadMessage blocks until a
// message arrives or the connection fails; Close unblocks a pending read.
type Conn interface {
	ReadMessage(ctx context.Context) (string, error)
	WriteMessage(ctx context.Context, msg string) error
	Close() error
	Label() string
}

// IsPeerClosed reports whether err is an orderly close rather than an I/O
// failure.
func IsPeerClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
