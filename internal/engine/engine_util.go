package engine

// Names returns the human-readable name of every choice, in order.
func Names(choices []Choice) []string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.String()
	}
	return names
}

// ParseChoices builds a choice vector from selector characters, e.g. "RPS".
// Test fixtures use it to spell out rounds.
func ParseChoices(selectors string) []Choice {
	out := make([]Choice, len(selectors))
	for i := 0; i < len(selectors); i++ {
		out[i] = ChoiceFromSelector(selectors[i])
	}
	return out
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
