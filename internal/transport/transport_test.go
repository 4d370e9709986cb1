package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineConn_ReadsLinesThenEOF(t *testing.T) {
	server, client := net.Pipe()
	lc := NewLineConn(server)
	defer lc.Close()

	go func() {
		_, _ = io.WriteString(client, "MOVE:R\r\nRESET\nQUIT")
		_ = client.Close()
	}()

	ctx := context.Background()
	for _, want := range []string{"MOVE:R", "RESET", "QUIT"} {
		got, err := lc.ReadMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := lc.ReadMessage(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, IsPeerClosed(err))
}

func TestLineConn_WriteAppendsNewline(t *testing.T) {
	server, client := net.Pipe()
	lc := NewLineConn(server)
	defer lc.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- lc.WriteMessage(ctx, "RESULT::Rock:0")
	}()

	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "RESULT::Rock:0\n", line)
	require.NoError(t, <-done)
}

func TestLineConn_OversizedLineSkipped(t *testing.T) {
	server, client := net.Pipe()
	lc := NewLineConn(server)
	defer lc.Close()

	go func() {
		_, _ = io.WriteString(client, strings.Repeat("x", 2*MaxLineLength)+"\nMOVE:K\n")
		_ = client.Close()
	}()

	ctx := context.Background()
	_, err := lc.ReadMessage(ctx)
	assert.ErrorIs(t, err, ErrLineTooLong)
	assert.False(t, IsPeerClosed(err))

	got, err := lc.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MOVE:K", got)

	_, err = lc.ReadMessage(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineConn_OversizedFinalLine(t *testing.T) {
	server, client := net.Pipe()
	lc := NewLineConn(server)
	defer lc.Close()

	go func() {
		_, _ = io.WriteString(client, strings.Repeat("x", MaxLineLength+10))
		_ = client.Close()
	}()

	_, err := lc.ReadMessage(context.Background())
	assert.ErrorIs(t, err, ErrLineTooLong)
	_, err = lc.ReadMessage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineConn_WriteAfterPeerCloseFails(t *testing.T) {
	server, client := net.Pipe()
	lc := NewLineConn(server)
	_ = client.Close()

	err := lc.WriteMessage(context.Background(), "QUIT")
	require.Error(t, err)
	assert.True(t, IsPeerClosed(err))
}

func TestKeyToMessage(t *testing.T) {
	cases := map[byte]string{
		'Q': "QUIT", 'q': "QUIT",
		'T': "RESET", 't': "RESET",
		'R': "MOVE:R", 'k': "MOVE:k", 'X': "MOVE:X",
	}
	for key, want := range cases {
		assert.Equal(t, want, KeyToMessage(key), "key %q", key)
	}
}

func TestConsoleConn_ReadSkipsBlankLines(t *testing.T) {
	cc := NewConsoleConn(strings.NewReader("\n  \nrock\nT\nq\n"), io.Discard)

	var got []string
	for {
		msg, err := cc.ReadMessage(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, msg)
	}
	assert.Equal(t, []string{"MOVE:r", "RESET", "QUIT"}, got)
}

func TestConsoleConn_WritePromptsAfterRound(t *testing.T) {
	var out bytes.Buffer
	cc := NewConsoleConn(strings.NewReader(""), &out)

	require.NoError(t, cc.WriteMessage(context.Background(), "INFO:Welcome"))
	assert.Equal(t, "[Server] INFO:Welcome\n", out.String())

	out.Reset()
	require.NoError(t, cc.WriteMessage(context.Background(), "RESULT::Rock:0"))
	assert.Equal(t, "[Server] RESULT::Rock:0\n"+consolePrompt, out.String())
	assert.Equal(t, "console", cc.Label())
}

func TestIsPeerClosed(t *testing.T) {
	assert.False(t, IsPeerClosed(nil))
	assert.True(t, IsPeerClosed(io.EOF))
	assert.True(t, IsPeerClosed(net.ErrClosed))
	assert.False(t, IsPeerClosed(errors.New("connection reset")))
}
