package transport

import (
	"context"
	"sync"

	"github.com/coder/websocket"
)

// WSConn carries one protocol message per websocket text frame.
type WSConn struct {
	conn   *websocket.Conn
	remote string

	once sync.Once
	done chan struct{}
}

func NewWSConn(conn *websocket.Conn, remote string) *WSConn {
	return &WSConn{conn: conn, remote: remote, done: make(chan struct{})}
}

func (c *WSConn) ReadMessage(ctx context.Context) (string, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return "", err
		}
		if typ == websocket.MessageText {
			return string(data), nil
		}
		// binary frames are not part of the protocol
	}
}

func (c *WSConn) WriteMessage(ctx context.Context, msg string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "session ended")
		close(c.done)
	})
	return err
}

// Done is closed once the session has closed the connection.
func (c *WSConn) Done() <-chan struct{} { return c.done }

func (c *WSConn) Label() string { return "ws:" + c.remote }
