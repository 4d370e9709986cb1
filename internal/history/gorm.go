package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionSummary is the stored row for one finished session.
type SessionSummary struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:36;uniqueIndex"`
	Reason    string `gorm:"size:16"`
	Players   int
	Rounds    int
	Scores    string
	Error     string
	StartedAt time.Time
	EndedAt   time.Time `gorm:"index"`
	CreatedAt time.Time
}

type GormRecorder struct {
	db  *gorm.DB
	log *zap.Logger
}

// OpenPostgres connects to dsn and migrates the summaries table.
func OpenPostgres(dsn string, log *zap.Logger) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return NewGormRecorder(db, log)
}

func NewGormRecorder(db *gorm.DB, log *zap.Logger) (*GormRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&SessionSummary{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &GormRecorder{db: db, log: log}, nil
}

func (r *GormRecorder) Record(ctx context.Context, s Summary) error {
	row := toRow(s)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record session %s: %w", s.SessionID, err)
	}
	r.log.Debug("session summary stored", zap.String("session", s.SessionID), zap.Uint("row", row.ID))
	return nil
}

func (r *GormRecorder) Recent(ctx context.Context, limit int) ([]Summary, error) {
	var rows []SessionSummary
	q := r.db.WithContext(ctx).Order("ended_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		s, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(s Summary) SessionSummary {
	scores := make([]string, len(s.Scores))
	for i, v := range s.Scores {
		scores[i] = strconv.Itoa(v)
	}
	return SessionSummary{
		SessionID: s.SessionID,
		Reason:    s.Reason,
		Players:   s.Players,
		Rounds:    s.Rounds,
		Scores:    strings.Join(scores, ","),
		Error:     s.Error,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}

func fromRow(row SessionSummary) (Summary, error) {
	scores := []int{}
	if row.Scores != "" {
		for _, f := range strings.Split(row.Scores, ",") {
			v, err := strconv.Atoi(f)
			if err != nil {
				return Summary{}, fmt.Errorf("session %s: bad score %q: %w", row.SessionID, f, err)
			}
			scores = append(scores, v)
		}
	}
	return Summary{
		SessionID: row.SessionID,
		Reason:    row.Reason,
		Players:   row.Players,
		Rounds:    row.Rounds,
		Scores:    scores,
		Error:     row.Error,
		StartedAt: row.StartedAt,
		EndedAt:   row.EndedAt,
	}, nil
}
