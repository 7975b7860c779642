package repository

import (
	"context"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
)

// ReviewLog is one appended row per grade tick. It feeds the adaptive daily
// limiter's recent-accuracy signal and user-facing history.
type ReviewLog struct {
	ID           int64
	CardID       int64
	UserID       int64
	Rating       entity.Rating
	OldState     entity.CardState
	NewState     entity.CardState
	IntervalDays int32
	EaseFactor   float64
	ReviewedAt   time.Time
}

// Accuracy summarises graded answers over a window.
type Accuracy struct {
	Correct int64
	Total   int64
}

// Ratio returns correct/total, or 1 when nothing was graded yet so a quiet
// week never reads as failing.
func (a Accuracy) Ratio() float64 {
	if a.Total == 0 {
		return 1
	}
	return float64(a.Correct) / float64(a.Total)
}

// ReviewLogRepository appends and aggregates grading history.
type ReviewLogRepository interface {
	Append(ctx context.Context, log *ReviewLog) error
	AccuracySince(ctx context.Context, userID int64, since time.Time) (Accuracy, error)
}
