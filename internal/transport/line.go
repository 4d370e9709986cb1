package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// LineConn frames messages as newline-terminated lines over a byte stream.
type LineConn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
}

func NewLineConn(conn net.Conn) *LineConn {
	return &LineConn{conn: conn, r: bufio.NewReaderSize(conn, MaxLineLength)}
}

// ReadMessage returns the next line without its terminator. A final line
// without a newline is still delivered before io.EOF. A line longer than
// MaxLineLength is skipped up to its newline and reported as ErrLineTooLong;
// the connection stays usable.
func (c *LineConn) ReadMessage(ctx context.Context) (string, error) {
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetReadDeadline(deadline)

	line, err := c.r.ReadSlice('\n')
	switch {
	case err == nil:
		return trimEOL(line), nil
	case errors.Is(err, bufio.ErrBufferFull):
		if err := c.skipLine(); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", c.Label(), ErrLineTooLong)
	case errors.Is(err, io.EOF) && len(line) > 0:
		return trimEOL(line), nil
	default:
		return "", err
	}
}

// skipLine drops input up to and including the next newline.
func (c *LineConn) skipLine() error {
	for {
		_, err := c.r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func trimEOL(line []byte) string {
	return strings.TrimRight(string(line), "\r\n")
}

func (c *LineConn) WriteMessage(ctx context.Context, msg string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	// zero deadline when ctx has none clears any previous one
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetWriteDeadline(deadline)
	_, err := io.WriteString(c.conn, msg+"\n")
	return err
}

func (c *LineConn) Close() error { return c.conn.Close() }

func (c *LineConn) Label() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return "tcp:" + addr.String()
	}
	return "tcp"
}
