package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const consolePrompt = "Enter move (R/P/S/L/K), T=reset, Q=quit: "

// ConsoleConn lets a co-located player take a seat from the terminal. Each
// input line's first character is a key: R/P/S/L/K play, T resets, Q quits.
type ConsoleConn struct {
	in  *bufio.Scanner
	src io.Reader

	mu  sync.Mutex
	out io.Writer
}

func NewConsoleConn(in io.Reader, out io.Writer) *ConsoleConn {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 256), MaxLineLength)
	return &ConsoleConn{in: sc, src: in, out: out}
}

// KeyToMessage maps a console key to its protocol line.
func KeyToMessage(key byte) string {
	switch key {
	case 'Q', 'q':
		return "QUIT"
	case 'T', 't':
		return "RESET"
	default:
		return "MOVE:" + string(key)
	}
}

func (c *ConsoleConn) ReadMessage(ctx context.Context) (string, error) {
	for c.in.Scan() {
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		return KeyToMessage(line[0]), nil
	}
	if err := c.in.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (c *ConsoleConn) WriteMessage(ctx context.Context, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "[Server] %s\n", msg); err != nil {
		return err
	}
	if strings.HasPrefix(msg, "RESULT:") || msg == "RESET" {
		_, err := io.WriteString(c.out, consolePrompt)
		return err
	}
	return nil
}

// Close closes the input when it is closable.
func (c *ConsoleConn) Close() error {
	if cl, ok := c.src.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *ConsoleConn) Label() string { return "console" }
