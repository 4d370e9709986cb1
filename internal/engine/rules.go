package engine

// beatsTable[a][b] reports whether a beats b.
var beatsTable = [5][5]bool{
	//          Rock   Paper  Scissors Lizard Spock
	Rock:     {false, false, true, true, false},
	Paper:    {true, false, false, false, true},
	Scissors: {false, true, false, true, false},
	Lizard:   {false, true, false, false, true},
	Spock:    {true, false, true, false, false},
}

func Beats(a, b Choice) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return beatsTable[a][b]
}

// Winners returns, in ascending order, every index whose choice is beaten by
// no other valid choice and beats at least one. Invalid and None entries keep
// their index but take no part.
func Winners(choices []Choice) []int {
	winners := []int{}
	for i, c := range choices {
		if !c.Valid() {
			continue
		}
		beaten, beatsAny := false, false
		for j, other := range choices {
			if i == j || !other.Valid() {
				continue
			}
			if Beats(other, c) {
				beaten = true
				break
			}
			if Beats(c, other) {
				beatsAny = true
			}
		}
		if !beaten && beatsAny {
			winners = append(winners, i)
		}
	}
	return winners
}
