// Package types holds the JSON bodies served by the HTTP API.
package types

import (
	"github.com/DoyleJ11/spock-server/internal/history"
	"github.com/DoyleJ11/spock-server/internal/hub"
)

type Health struct {
	Status string `json:"status"` // "ok" | "idle"
}

type SessionList struct {
	Sessions []hub.SessionInfo `json:"sessions"`
}

type HistoryList struct {
	History []history.Summary `json:"history"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
