package entity

import "time"

// WordStatus is the coarse user-visible label derived from a word's two cards.
type WordStatus string

const (
	WordStatusNew      WordStatus = "new"
	WordStatusLearning WordStatus = "learning"
	WordStatusReview   WordStatus = "review"
	WordStatusMastered WordStatus = "mastered"
)

// UserWord represents the relation "user has taken word into study".
// It owns exactly zero or two cards, one per direction, never one.
type UserWord struct {
	ID        int64
	UserID    int64
	WordID    int64
	Status    WordStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Normalize ensures defaults & constraints before persistence.
func (uw *UserWord) Normalize(now time.Time) {
	if uw.CreatedAt.IsZero() {
		uw.CreatedAt = now
	}
	uw.UpdatedAt = now
	if uw.Status == "" {
		uw.Status = WordStatusNew
	}
}
