package repository

import (
	"context"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
)

// DueQuery selects cards in one state tier that are due before the deadline.
type DueQuery struct {
	UserID     int64
	DeckID     int64 // 0 = all decks
	WordIDs    []int64
	States     []entity.CardState
	DueBefore  time.Time
	Now        time.Time // excludes cards buried past this instant
	ExcludeIDs []int64
	Limit      int32
}

// CardRepository abstracts persistence for cards to keep usecases storage
// agnostic. GetForUpdate must take a row lock when called inside a Store
// transaction.
type CardRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Card, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Card, error)
	GetSibling(ctx context.Context, userWordID, excludeCardID int64) (*entity.Card, error)
	Create(ctx context.Context, card *entity.Card) (*entity.Card, error)
	Update(ctx context.Context, card *entity.Card) error
	ListByUserWord(ctx context.Context, userWordID int64) ([]entity.Card, error)

	// ListDue returns cards ordered by next_review_at ascending with a random
	// tie break, honoring burial and the exclusion set.
	ListDue(ctx context.Context, q DueQuery) ([]entity.StudyItem, error)
	ExistsDue(ctx context.Context, q DueQuery) (bool, error)
	CountDue(ctx context.Context, q DueQuery) (int32, error)

	// CountNewSince counts cards first reviewed at or after dayStart.
	CountNewSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error)
	// CountReviewsSince counts cards last reviewed at or after dayStart that
	// were introduced before it, so fresh cards are not double counted.
	CountReviewsSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error)
	// CountReviewBacklog counts review-state cards overdue at now.
	CountReviewBacklog(ctx context.Context, userID int64, now time.Time) (int32, error)

	// ResetSessionAttempts zeroes the per-session counter for every card in scope.
	ResetSessionAttempts(ctx context.Context, userID int64, scope entity.SessionScope) error
	// ClearExpiredBurials nulls buried_until values already in the past.
	ClearExpiredBurials(ctx context.Context, now time.Time) (int64, error)
}
