package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedResult = errors.New("malformed result")

type ServerKind string

const (
	ServerQuit    ServerKind = "Quit"
	ServerReset   ServerKind = "Reset"
	ServerResult  ServerKind = "Result"
	ServerInfo    ServerKind = "Info"
	ServerUnknown ServerKind = "Unknown"
)

// Result is the client-side view of a RESULT line. Winners are 1-based seats.
type Result struct {
	Winners []int
	Choices []string
	Scores  []int
}

type ServerMessage struct {
	Kind   ServerKind
	Text   string
	Result Result
}

// ParseServerLine classifies a line received from the server.
func ParseServerLine(line string) (ServerMessage, error) {
	raw := strings.TrimSpace(line)
	switch {
	case raw == verbQuit:
		return ServerMessage{Kind: ServerQuit}, nil
	case raw == verbReset:
		return ServerMessage{Kind: ServerReset}, nil
	case strings.HasPrefix(raw, verbInfo):
		return ServerMessage{Kind: ServerInfo, Text: raw[len(verbInfo):]}, nil
	case strings.HasPrefix(raw, verbResult):
		res, err := ParseResult(raw)
		if err != nil {
			return ServerMessage{Kind: ServerUnknown, Text: raw}, err
		}
		return ServerMessage{Kind: ServerResult, Result: res}, nil
	}
	return ServerMessage{Kind: ServerUnknown, Text: raw}, nil
}

func ParseResult(line string) (Result, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(line), verbResult)
	if !ok {
		return Result{}, fmt.Errorf("%w: missing %q prefix", ErrMalformedResult, verbResult)
	}
	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return Result{}, fmt.Errorf("%w: want 3 fields, got %d", ErrMalformedResult, len(parts))
	}

	winners, err := splitInts(parts[0])
	if err != nil {
		return Result{}, fmt.Errorf("%w: winners: %v", ErrMalformedResult, err)
	}
	scores, err := splitInts(parts[2])
	if err != nil {
		return Result{}, fmt.Errorf("%w: scores: %v", ErrMalformedResult, err)
	}
	var choices []string
	if parts[1] != "" {
		choices = strings.Split(parts[1], ",")
	}
	if len(choices) != len(scores) {
		return Result{}, fmt.Errorf("%w: %d choices for %d scores", ErrMalformedResult, len(choices), len(scores))
	}
	return Result{Winners: winners, Choices: choices, Scores: scores}, nil
}

func splitInts(field string) ([]int, error) {
	out := []int{}
	if field == "" {
		return out, nil
	}
	for _, p := range strings.Split(field, ",") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
