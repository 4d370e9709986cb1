package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allChoices = []Choice{Rock, Paper, Scissors, Lizard, Spock}

func TestBeatsTable_EachBeatsTwoLosesToTwo(t *testing.T) {
	for _, a := range allChoices {
		wins, losses := 0, 0
		for _, b := range allChoices {
			if Beats(a, b) {
				wins++
			}
			if Beats(b, a) {
				losses++
			}
			if Beats(a, b) && Beats(b, a) {
				t.Fatalf("%v and %v beat each other", a, b)
			}
		}
		assert.Equal(t, 2, wins, "%v wins", a)
		assert.Equal(t, 2, losses, "%v losses", a)
		assert.False(t, Beats(a, a), "%v beats itself", a)
	}
}

func TestBeats_Relation(t *testing.T) {
	cases := []struct {
		a, b Choice
	}{
		{Rock, Scissors}, {Rock, Lizard},
		{Paper, Rock}, {Paper, Spock},
		{Scissors, Paper}, {Scissors, Lizard},
		{Lizard, Paper}, {Lizard, Spock},
		{Spock, Rock}, {Spock, Scissors},
	}
	for _, tc := range cases {
		t.Run(tc.a.String()+"_"+tc.b.String(), func(t *testing.T) {
			if !Beats(tc.a, tc.b) {
				t.Fatalf("want %v to beat %v", tc.a, tc.b)
			}
		})
	}
	assert.False(t, Beats(Invalid, Rock))
	assert.False(t, Beats(Rock, Invalid))
	assert.False(t, Beats(None, Rock))
}

func TestWinners(t *testing.T) {
	cases := []struct {
		name    string
		choices string
		want    []int
	}{
		{name: "classic three-way cycle", choices: "PRS", want: []int{}},
		{name: "all identical", choices: "RRRR", want: []int{}},
		{name: "all five present", choices: "RPSLK", want: []int{}},
		{name: "two rocks over scissors and lizard", choices: "RRSSL", want: []int{0, 1}},
		{name: "single winner", choices: "PR", want: []int{0}},
		{name: "single winner second seat", choices: "SK", want: []int{1}},
		{name: "one player", choices: "K", want: []int{}},
		{name: "invalid entry ignored", choices: "RXS", want: []int{0}},
		{name: "only invalid", choices: "XX", want: []int{}},
		{name: "spock over rock and scissors", choices: "SKRK", want: []int{1, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Winners(ParseChoices(tc.choices))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWinners_PermutationInvariant(t *testing.T) {
	base := ParseChoices("RRSSL")
	perms := [][]int{
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 2, 3, 4, 0},
	}
	baseWinners := map[int]bool{}
	for _, w := range Winners(base) {
		baseWinners[w] = true
	}
	for _, p := range perms {
		permuted := make([]Choice, len(base))
		for newIdx, oldIdx := range p {
			permuted[newIdx] = base[oldIdx]
		}
		got := map[int]bool{}
		for _, w := range Winners(permuted) {
			got[p[w]] = true
		}
		assert.Equal(t, baseWinners, got, "perm %v", p)
	}
}

func TestWinners_UnboundedN(t *testing.T) {
	choices := make([]Choice, 0, 40)
	for i := 0; i < 20; i++ {
		choices = append(choices, Paper, Rock)
	}
	got := Winners(choices)
	require.Len(t, got, 20)
	for _, w := range got {
		assert.Equal(t, Paper, choices[w])
	}
}

func TestChoiceFromSelector(t *testing.T) {
	for sel, want := range map[byte]Choice{
		'R': Rock, 'r': Rock, 'P': Paper, 'p': Paper, 'S': Scissors, 's': Scissors,
		'L': Lizard, 'l': Lizard, 'K': Spock, 'k': Spock, 'X': Invalid, '1': Invalid,
	} {
		assert.Equal(t, want, ChoiceFromSelector(sel), "selector %q", sel)
	}
	assert.Equal(t, byte('K'), Spock.Selector())
	assert.Equal(t, "Scissors", Scissors.String())
	assert.Equal(t, "Invalid", Invalid.String())
}

func TestState_RecordChoiceFirstWins(t *testing.T) {
	s := NewState(3)
	_, err := s.RecordChoice(0, Rock)
	require.NoError(t, err)

	_, err = s.RecordChoice(0, Paper)
	if !errors.Is(err, ErrDuplicateChoice) {
		t.Fatalf("want ErrDuplicateChoice, got %v", err)
	}
	assert.Equal(t, Rock, s.Choices()[0])
	assert.Equal(t, 1, s.Collected())
	assert.False(t, s.Complete())
}

func TestState_RecordChoiceRejects(t *testing.T) {
	s := NewState(2)
	_, err := s.RecordChoice(2, Rock)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	_, err = s.RecordChoice(-1, Rock)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	_, err = s.RecordChoice(0, Invalid)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Equal(t, 0, s.Collected())
}

func TestState_ResolveAwardsAndClears(t *testing.T) {
	s := NewState(5)
	for i, c := range ParseChoices("RRSSL") {
		ev, err := s.RecordChoice(i, c)
		require.NoError(t, err)
		assert.Equal(t, EvtChoiceRecorded, ev.Type)
	}
	require.True(t, s.Complete())

	out, ev, ok := s.Resolve()
	require.True(t, ok)
	assert.Equal(t, EvtRoundResolved, ev.Type)
	assert.Equal(t, 1, out.Round)
	assert.Equal(t, []int{0, 1}, out.Winners)
	assert.Equal(t, []int{1, 1, 0, 0, 0}, out.Scores)
	assert.Equal(t, []string{"Rock", "Rock", "Scissors", "Scissors", "Lizard"}, Names(out.Choices))

	assert.Equal(t, 0, s.Collected())
	assert.Equal(t, 2, s.Round())
	for _, c := range s.Choices() {
		assert.Equal(t, None, c)
	}
}

func TestState_ResolveIncompleteIsNoop(t *testing.T) {
	s := NewState(2)
	_, _ = s.RecordChoice(0, Rock)
	_, _, ok := s.Resolve()
	assert.False(t, ok)
	assert.Equal(t, 1, s.Collected())
}

func TestState_ResetMidRound(t *testing.T) {
	s := NewState(3)
	s.ApplyOutcome([]int{0, 2})
	_, _ = s.RecordChoice(0, Rock)
	_, _ = s.RecordChoice(1, Paper)

	ev := s.ResetScores()
	assert.Equal(t, EvtScoresReset, ev.Type)
	assert.Equal(t, []int{0, 0, 0}, s.Scores())
	assert.Equal(t, []Choice{None, None, None}, s.Choices())
	assert.Equal(t, 0, s.Collected())

	for i, c := range ParseChoices("PRS") {
		_, err := s.RecordChoice(i, c)
		require.NoError(t, err)
	}
	out, _, ok := s.Resolve()
	require.True(t, ok)
	assert.Empty(t, out.Winners)
	assert.Equal(t, []int{0, 0, 0}, out.Scores)
}

func TestState_SnapshotsAreCopies(t *testing.T) {
	s := NewState(2)
	scores := s.Scores()
	scores[0] = 99
	assert.Equal(t, []int{0, 0}, s.Scores())
}

func TestContainsEvent(t *testing.T) {
	events := []Event{{Type: EvtChoiceRecorded}, {Type: EvtRoundResolved}}
	assert.True(t, ContainsEvent(events, EvtRoundResolved))
	assert.False(t, ContainsEvent(events, EvtScoresReset))
}
