package hub

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/spock-server/internal/history"
)

type pipeConn struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
	label  string
}

func newPipeConn(label string) *pipeConn {
	return &pipeConn{
		in:     make(chan string, 8),
		out:    make(chan string, 32),
		closed: make(chan struct{}),
		label:  label,
	}
}

func (c *pipeConn) ReadMessage(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.in:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-c.closed:
		return "", net.ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *pipeConn) WriteMessage(_ context.Context, msg string) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	case c.out <- msg:
		return nil
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) Label() string { return c.label }

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
}

func TestHub_SeatsExactlyPlayersPerSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Options{Players: 2})

	a, b, c := newPipeConn("a"), newPipeConn("b"), newPipeConn("c")
	ack, err := h.JoinConn(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Seat)
	assert.Equal(t, 1, ack.Waiting)

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	ack, err = h.JoinConn(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, ack.Seat)
	assert.Equal(t, 0, ack.Waiting)

	ack, err = h.JoinConn(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Seat, "third player waits for the next session")

	sessions, err = h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"a", "b"}, sessions[0].Players)
	assert.NotEmpty(t, sessions[0].ID)

	a.in <- "MOVE:R"
	b.in <- "MOVE:S"
	assert.Equal(t, "RESULT:1:Rock,Scissors:1,0", <-a.out)
	assert.Equal(t, "RESULT:1:Rock,Scissors:1,0", <-b.out)
}

func TestHub_MaxSessionsGoesIdleAndRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := history.NewMemory(10)
	h := NewHub(ctx, Options{Players: 1, MaxSessions: 1, Recorder: rec})

	solo := newPipeConn("solo")
	_, err := h.JoinConn(ctx, solo)
	require.NoError(t, err)

	_, err = h.JoinConn(ctx, newPipeConn("late"))
	assert.ErrorIs(t, err, ErrClosed)

	solo.in <- "MOVE:K"
	assert.Equal(t, "RESULT::Spock:0", <-solo.out)
	solo.in <- "QUIT"
	assert.Equal(t, "QUIT", <-solo.out)

	waitClosed(t, h.Idle())
	got, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "quit", got[0].Reason)
	assert.Equal(t, 1, got[0].Rounds)
	assert.Equal(t, []int{0}, got[0].Scores)
	assert.Equal(t, h.Recorder(), history.Recorder(rec))
}

func TestHub_ShutdownEndsSessionsAndClosesWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Options{Players: 2})

	a, b, waiting := newPipeConn("a"), newPipeConn("b"), newPipeConn("w")
	for _, c := range []*pipeConn{a, b, waiting} {
		_, err := h.JoinConn(ctx, c)
		require.NoError(t, err)
	}

	h.Inbox() <- ShutdownHub{}
	waitClosed(t, h.Idle())
	waitClosed(t, waiting.closed)
	assert.Equal(t, "QUIT", <-a.out)
	assert.Equal(t, "QUIT", <-b.out)

	_, err := h.JoinConn(ctx, newPipeConn("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHub_HangUpInWaitingRoomFreesSeat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Options{Players: 2, MaxSessions: 1})

	quitter := newPipeConn("quitter")
	_, err := h.JoinConn(ctx, quitter)
	require.NoError(t, err)
	close(quitter.in)
	waitClosed(t, quitter.closed)

	a, b := newPipeConn("a"), newPipeConn("b")
	ack, err := h.JoinConn(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Seat)
	_, err = h.JoinConn(ctx, b)
	require.NoError(t, err)

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"a", "b"}, sessions[0].Players)

	a.in <- "MOVE:P"
	b.in <- "MOVE:R"
	assert.Equal(t, "RESULT:1:Paper,Rock:1,0", <-a.out)
}

func TestHub_LinesSentWhileWaitingReachTheSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Options{Players: 2})

	early, late := newPipeConn("early"), newPipeConn("late")
	_, err := h.JoinConn(ctx, early)
	require.NoError(t, err)
	early.in <- "MOVE:L"
	_, err = h.JoinConn(ctx, late)
	require.NoError(t, err)

	late.in <- "MOVE:K"
	assert.Equal(t, "RESULT:1:Lizard,Spock:1,0", <-early.out)
}
