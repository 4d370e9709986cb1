package client

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/DoyleJ11/spock-server/internal/protocol"
)

const promptText = "Enter move (R/P/S/L/K), T=reset, M=score, Q=quit: "

var helpLines = []string{
	"R: Rock   P: Paper   S: Scissors   L: Lizard   K: Spock",
	"T: reset the scores   M: show local score   Q: quit",
}

// RenderResult draws a round result as a table, winners highlighted.
func RenderResult(res protocol.Result) (string, error) {
	winner := make(map[int]bool, len(res.Winners))
	for _, w := range res.Winners {
		winner[w] = true
	}
	data := pterm.TableData{{"Player", "Choice", "Score", ""}}
	for i, choice := range res.Choices {
		seat := i + 1
		mark := ""
		if winner[seat] {
			mark = pterm.LightGreen("won")
		}
		data = append(data, []string{strconv.Itoa(seat), choice, strconv.Itoa(res.Scores[i]), mark})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	title := "Round tied, no winner"
	if len(res.Winners) > 0 {
		title = "Round result"
	}
	return pterm.DefaultBox.WithTitle(pterm.LightYellow(title)).WithTitleTopCenter().Sprint(table), nil
}
