// Package history keeps summaries of finished sessions. Summaries are an
// audit trail only; nothing here is used to restore a session.
package history

import (
	"context"
	"sync"
	"time"
)

type Summary struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	Players   int       `json:"players"`
	Rounds    int       `json:"rounds"`
	Scores    []int     `json:"scores"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type Recorder interface {
	Record(ctx context.Context, s Summary) error
}

// Lister is implemented by recorders that can read summaries back.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Summary, error)
}

// Memory keeps the most recent summaries in process.
type Memory struct {
	mu        sync.RWMutex
	summaries []Summary
	limit     int
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 100
	}
	return &Memory{limit: limit}
}

func (m *Memory) Record(_ context.Context, s Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	if len(m.summaries) > m.limit {
		m.summaries = m.summaries[len(m.summaries)-m.limit:]
	}
	return nil
}

// Recent returns up to limit summaries, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.summaries) {
		limit = len(m.summaries)
	}
	out := make([]Summary, 0, limit)
	for i := len(m.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.summaries[i])
	}
	return out, nil
}
