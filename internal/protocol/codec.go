// Package protocol implements the line-oriented wire format spoken between
// the round coordinator and participants.
//
// Participant to server:
//
//	MOVE:<c>   c in R,P,S,L,K (any case)
//	RESET
//	QUIT
//
// Server to participant:
//
//	QUIT
//	RESET
//	RESULT:<winners>:<choices>:<scores>
//	INFO:<text>
package protocol

import (
	"errors"
	"strconv"
	"strings"

	"github.com/DoyleJ11/spock-server/internal/engine"
)

var ErrUnrecognized = errors.New("unrecognized message")

const (
	verbMove   = "MOVE:"
	verbReset  = "RESET"
	verbQuit   = "QUIT"
	verbResult = "RESULT:"
	verbInfo   = "INFO:"
)

type Kind string

const (
	KindMove         Kind = "Move"
	KindReset        Kind = "Reset"
	KindQuit         Kind = "Quit"
	KindUnrecognized Kind = "Unrecognized"
)

// Message is one decoded participant message. Err is set only for
// KindUnrecognized.
type Message struct {
	Kind   Kind
	Choice engine.Choice
	Raw    string
	Err    error
}

// Decode classifies one inbound line. Verbs match as prefixes; the move
// selector is the first byte after "MOVE:".
func Decode(line string) Message {
	raw := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(raw, verbQuit):
		return Message{Kind: KindQuit, Raw: raw}
	case strings.HasPrefix(raw, verbReset):
		return Message{Kind: KindReset, Raw: raw}
	case strings.HasPrefix(raw, verbMove) && len(raw) > len(verbMove):
		c := engine.ChoiceFromSelector(raw[len(verbMove)])
		if c.Valid() {
			return Message{Kind: KindMove, Choice: c, Raw: raw}
		}
	}
	return Message{Kind: KindUnrecognized, Choice: engine.Invalid, Raw: raw, Err: ErrUnrecognized}
}

func EncodeQuit() string  { return verbQuit }
func EncodeReset() string { return verbReset }

func EncodeInfo(text string) string { return verbInfo + text }

func EncodeMove(c engine.Choice) string { return verbMove + string(c.Selector()) }

// EncodeResult renders RESULT:<winners>:<choices>:<scores> with 1-based
// winner seats.
func EncodeResult(out engine.Outcome) string {
	winners := make([]string, len(out.Winners))
	for i, w := range out.Winners {
		winners[i] = strconv.Itoa(w + 1)
	}
	scores := make([]string, len(out.Scores))
	for i, s := range out.Scores {
		scores[i] = strconv.Itoa(s)
	}
	return verbResult + strings.Join(winners, ",") + ":" +
		strings.Join(engine.Names(out.Choices), ",") + ":" +
		strings.Join(scores, ",")
}
