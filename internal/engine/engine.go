package engine

import (
	"errors"
	"fmt"
)

var ErrDuplicateChoice = errors.New("choice already recorded this round")
var ErrInvalidChoice = errors.New("invalid choice")
var ErrUnknownParticipant = errors.New("unknown participant")

type Choice int

const (
	Rock Choice = iota
	Paper
	Scissors
	Lizard
	Spock
	Invalid
)

// None marks an empty slot in the round being collected.
const None Choice = -1

var choiceNames = [...]string{"Rock", "Paper", "Scissors", "Lizard", "Spock"}

func (c Choice) String() string {
	if c.Valid() {
		return choiceNames[c]
	}
	if c == None {
		return "None"
	}
	return "Invalid"
}

func (c Choice) Valid() bool { return c >= Rock && c <= Spock }

// Selector returns the one-character wire selector for c.
func (c Choice) Selector() byte {
	if !c.Valid() {
		return 'X'
	}
	return "RPSLK"[c]
}

// ChoiceFromSelector maps R/P/S/L/K (any case) to a Choice.
func ChoiceFromSelector(b byte) Choice {
	switch b {
	case 'R', 'r':
		return Rock
	case 'P', 'p':
		return Paper
	case 'S', 's':
		return Scissors
	case 'L', 'l':
		return Lizard
	case 'K', 'k':
		return Spock
	default:
		return Invalid
	}
}

type EventType string

const (
	EvtChoiceRecorded EventType = "ChoiceRecorded"
	EvtRoundResolved  EventType = "RoundResolved"
	EvtScoresReset    EventType = "ScoresReset"
)

type Event struct {
	Type        EventType
	Participant int
	Choice      Choice
	Round       int
}

// Outcome is the result of one resolved round. Winners holds 0-based indices.
type Outcome struct {
	Round   int
	Winners []int
	Choices []Choice
	Scores  []int
}

// State is the per-session score and round bookkeeping. It is not safe for
// concurrent use; the coordinator owns it.
type State struct {
	scores    []int
	choices   []Choice
	collected int
	round     int
}

func NewState(n int) *State {
	s := &State{
		scores:  make([]int, n),
		choices: make([]Choice, n),
		round:   1,
	}
	s.clearRound()
	return s
}

// Round is the 1-based number of the round currently being collected.
func (s *State) Round() int { return s.round }

func (s *State) Scores() []int {
	out := make([]int, len(s.scores))
	copy(out, s.scores)
	return out
}

func (s *State) Choices() []Choice {
	out := make([]Choice, len(s.choices))
	copy(out, s.choices)
	return out
}

func (s *State) Collected() int { return s.collected }

func (s *State) Complete() bool { return s.collected == len(s.choices) }

// RecordChoice stores the first valid choice of participant i for the round.
func (s *State) RecordChoice(i int, c Choice) (Event, error) {
	if i < 0 || i >= len(s.choices) {
		return Event{}, fmt.Errorf("record choice for %d: %w", i, ErrUnknownParticipant)
	}
	if !c.Valid() {
		return Event{}, ErrInvalidChoice
	}
	if s.choices[i] != None {
		return Event{}, ErrDuplicateChoice
	}
	s.choices[i] = c
	s.collected++
	return Event{Type: EvtChoiceRecorded, Participant: i, Choice: c, Round: s.round}, nil
}

// ApplyOutcome awards one point per winner, snapshots the round and clears it.
func (s *State) ApplyOutcome(winners []int) (Outcome, Event) {
	for _, w := range winners {
		if w >= 0 && w < len(s.scores) {
			s.scores[w]++
		}
	}
	out := Outcome{
		Round:   s.round,
		Winners: append([]int{}, winners...),
		Choices: s.Choices(),
		Scores:  s.Scores(),
	}
	ev := Event{Type: EvtRoundResolved, Participant: -1, Round: s.round}
	s.round++
	s.clearRound()
	return out, ev
}

// Resolve computes the winners of a complete round and applies them.
func (s *State) Resolve() (Outcome, Event, bool) {
	if !s.Complete() {
		return Outcome{}, Event{}, false
	}
	out, ev := s.ApplyOutcome(Winners(s.choices))
	return out, ev, true
}

func (s *State) ResetScores() Event {
	for i := range s.scores {
		s.scores[i] = 0
	}
	s.clearRound()
	return Event{Type: EvtScoresReset, Participant: -1, Round: s.round}
}

func (s *State) clearRound() {
	for i := range s.choices {
		s.choices[i] = None
	}
	s.collected = 0
}
