package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/DoyleJ11/spock-server/internal/protocol"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

// ErrServerClosed means the connection dropped without a QUIT.
var ErrServerClosed = errors.New("server disconnected")

type Client struct {
	conn    transport.Conn
	keys    io.Reader
	out     io.Writer
	log     *slog.Logger
	tracker *Tracker
}

// New prints through pterm into out. A nil logger discards.
func New(conn transport.Conn, keys io.Reader, out io.Writer, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{conn: conn, keys: keys, out: out, log: log, tracker: NewTracker()}
}

func (c *Client) Tracker() *Tracker { return c.tracker }

type serverLine struct {
	line string
	err  error
}

// Run plays until the server sends QUIT, the player quits or ctx ends.
// Keys typed while a move is pending stay buffered until the next prompt.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.conn.Close()

	fromServer := make(chan serverLine)
	go func() {
		for {
			line, err := c.conn.ReadMessage(ctx)
			select {
			case fromServer <- serverLine{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	fromKeys := make(chan string)
	go func() {
		defer close(fromKeys)
		sc := bufio.NewScanner(c.keys)
		for sc.Scan() {
			select {
			case fromKeys <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.printf("%s", pterm.Info.Sprintln("Connected as "+c.conn.Label()))
	for _, l := range helpLines {
		c.printf("%s\n", l)
	}

	prompted := false
	for {
		var keys <-chan string
		if c.tracker.Prompt() {
			keys = fromKeys
			if !prompted {
				c.printf("%s", promptText)
				prompted = true
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case in := <-fromServer:
			if in.err != nil {
				if transport.IsPeerClosed(in.err) {
					c.printf("%s", pterm.Warning.Sprintln("Server disconnected."))
					return ErrServerClosed
				}
				return fmt.Errorf("read from server: %w", in.err)
			}
			if c.handleServer(in.line) {
				return nil
			}
			prompted = false

		case key, ok := <-keys:
			if !ok {
				// stdin closed, leave politely
				_ = c.conn.WriteMessage(ctx, protocol.EncodeQuit())
				return nil
			}
			quit, err := c.handleKey(ctx, key)
			if err != nil || quit {
				return err
			}
			prompted = false
		}
	}
}

func (c *Client) handleServer(line string) bool {
	msg, err := protocol.ParseServerLine(line)
	if err != nil {
		c.log.Warn("unreadable server line", "line", line, "error", err)
		c.printf("%s", pterm.Warning.Sprintln("Unknown message: "+line))
		return false
	}
	won, done := c.tracker.Received(msg)
	switch msg.Kind {
	case protocol.ServerQuit:
		c.printf("%s", pterm.Info.Sprintln("Server signaled QUIT. Exiting..."))
	case protocol.ServerReset:
		c.printf("%s", pterm.Info.Sprintln("Scores have been reset."))
	case protocol.ServerInfo:
		c.printf("%s", pterm.Info.Sprintln(msg.Text))
	case protocol.ServerResult:
		table, err := RenderResult(msg.Result)
		if err != nil {
			c.log.Error("render result", "error", err)
			table = line
		}
		c.printf("%s\n", table)
		if won {
			c.printf("%s", pterm.Success.Sprintln("You won this round!"))
		}
	default:
		c.printf("%s", pterm.Warning.Sprintln("Unknown message: "+msg.Text))
	}
	return done
}

func (c *Client) handleKey(ctx context.Context, key string) (bool, error) {
	cmd := ParseKey(key)
	switch cmd.Action {
	case ActionNone:
		return false, nil
	case ActionInvalid:
		c.printf("%s", pterm.Warning.Sprintln("Invalid command. Use R/P/S/L/K, T, M or Q."))
		return false, nil
	case ActionScore:
		c.printf("%s", pterm.Info.Sprintfln("Local score = %d after %d rounds (not official)",
			c.tracker.LocalScore(), c.tracker.Rounds()))
		return false, nil
	}
	if err := c.conn.WriteMessage(ctx, cmd.Line); err != nil {
		return false, fmt.Errorf("send %s: %w", cmd.Line, err)
	}
	c.tracker.Sent(cmd)
	return cmd.Action == ActionQuit, nil
}

func (c *Client) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
