package client

import (
	"slices"

	"github.com/DoyleJ11/spock-server/internal/engine"
	"github.com/DoyleJ11/spock-server/internal/protocol"
)

// Tracker follows the conversation from one player's side. The server never
// says which seat we hold, so the local score counts rounds in which our
// symbol was among the winning ones; equal symbols always share an outcome.
type Tracker struct {
	prompt   bool
	lastMove engine.Choice
	score    int
	rounds   int
}

func NewTracker() *Tracker {
	return &Tracker{prompt: true, lastMove: engine.None}
}

// Prompt reports whether the player should be asked for a key.
func (t *Tracker) Prompt() bool { return t.prompt }

func (t *Tracker) LocalScore() int { return t.score }

func (t *Tracker) Rounds() int { return t.rounds }

// Sent records a command that went out to the server.
func (t *Tracker) Sent(cmd Command) {
	if cmd.Action == ActionMove {
		t.lastMove = cmd.Choice
		t.prompt = false
	}
}

// Received updates the tracker and reports whether the session is over.
func (t *Tracker) Received(msg protocol.ServerMessage) (won bool, done bool) {
	switch msg.Kind {
	case protocol.ServerQuit:
		return false, true
	case protocol.ServerReset:
		t.score = 0
		t.lastMove = engine.None
		t.prompt = true
	case protocol.ServerResult:
		t.rounds++
		won = t.lastMove != engine.None && slices.ContainsFunc(msg.Result.Winners, func(seat int) bool {
			i := seat - 1
			return i >= 0 && i < len(msg.Result.Choices) && msg.Result.Choices[i] == t.lastMove.String()
		})
		if won {
			t.score++
		}
		t.lastMove = engine.None
		t.prompt = true
	}
	return won, false
}
