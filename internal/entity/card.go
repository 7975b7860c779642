package entity

import (
	"fmt"
	"time"
)

// CardState is the position of a card in the scheduling algebra.
type CardState string

const (
	StateNew        CardState = "new"
	StateLearning   CardState = "learning"
	StateRelearning CardState = "relearning"
	StateReview     CardState = "review"
)

func (s CardState) String() string { return string(s) }

// ParseCardState maps a stored state label back to its enum value.
func ParseCardState(s string) (CardState, error) {
	switch CardState(s) {
	case StateNew, StateLearning, StateRelearning, StateReview:
		return CardState(s), nil
	}
	return "", fmt.Errorf("unknown card state %q", s)
}

// Direction tells which side of the word the card prompts with.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// ParseDirection maps a stored direction label back to its enum value.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionForward, DirectionReverse:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Rating is the three-way answer grade.
type Rating int32

const (
	RatingDontKnow Rating = 1
	RatingDoubt    Rating = 2
	RatingKnow     Rating = 3
)

func (r Rating) Valid() bool {
	return r >= RatingDontKnow && r <= RatingKnow
}

// MapLegacyRating folds the historical 0..5 quality scale onto the three-way
// grade: 0-1 forgot, 2-3 shaky, 4-5 solid.
func MapLegacyRating(quality int32) Rating {
	switch {
	case quality <= 1:
		return RatingDontKnow
	case quality <= 3:
		return RatingDoubt
	default:
		return RatingKnow
	}
}

// Card is one directional scheduling unit. A user word owns exactly two, one
// per direction, and each is graded independently.
type Card struct {
	ID         int64
	UserWordID int64
	UserID     int64
	WordID     int64
	Direction  Direction

	State        CardState
	StepIndex    int32
	Repetitions  int32
	IntervalDays int32
	EaseFactor   float64
	Lapses       int32

	NextReviewAt    *time.Time
	LastReviewedAt  *time.Time
	FirstReviewedAt *time.Time

	SessionAttempts int32
	BuriedUntil     *time.Time

	CorrectCount   int32
	IncorrectCount int32
	IsLeech        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Buried reports whether the card is still resting after hitting the
// per-session attempt cap.
func (c *Card) Buried(now time.Time) bool {
	return c.BuriedUntil != nil && c.BuriedUntil.After(now)
}

// GradeResult is everything a client needs to react to one grading tick.
type GradeResult struct {
	CardID          int64
	State           CardState
	StepIndex       int32
	Repetitions     int32
	IntervalDays    int32
	EaseFactor      float64
	Lapses          int32
	NextReviewAt    *time.Time
	SessionAttempts int32

	// RequeuePosition and RequeueMinutes advise the client where to slot the
	// card back into its local queue; nil means the card left the session.
	RequeuePosition *int32
	RequeueMinutes  *int32

	IsBuried   bool
	IsLeech    bool
	LeechHint  string
	WordStatus WordStatus
}
