// Package client is the terminal player: it turns key presses into protocol
// lines and renders what the server broadcasts.
package client

import (
	"strings"

	"github.com/DoyleJ11/spock-server/internal/engine"
	"github.com/DoyleJ11/spock-server/internal/protocol"
)

type Action int

const (
	ActionNone Action = iota
	ActionMove
	ActionReset
	ActionQuit
	ActionScore
	ActionInvalid
)

// Command is one parsed keyboard line.
type Command struct {
	Action Action
	Choice engine.Choice
	Line   string // protocol line to send, empty for local actions
}

// ParseKey reads the first non-blank character of a keyboard line.
func ParseKey(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{Action: ActionNone}
	}
	switch key := input[0]; key {
	case 'Q', 'q':
		return Command{Action: ActionQuit, Line: protocol.EncodeQuit()}
	case 'T', 't':
		return Command{Action: ActionReset, Line: protocol.EncodeReset()}
	case 'M', 'm':
		return Command{Action: ActionScore}
	default:
		c := engine.ChoiceFromSelector(key)
		if !c.Valid() {
			return Command{Action: ActionInvalid}
		}
		return Command{Action: ActionMove, Choice: c, Line: protocol.EncodeMove(c)}
	}
}
