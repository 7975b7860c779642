package repository

import (
	"context"

	"github.com/eslsoft/srsd/internal/entity"
)

// FreshWordQuery selects words the user has not started studying yet.
// Ordering is frequency rank ascending, then level ascending, then random;
// one word per base-word id so two inflections of the same lemma are never
// introduced in a single pull.
type FreshWordQuery struct {
	UserID int64
	DeckID int64 // 0 = all decks
	Limit  int32
}

// WordRepository provides read access to dictionary words.
type WordRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Word, error)
	ListFresh(ctx context.Context, q FreshWordQuery) ([]entity.Word, error)
	ExistsFresh(ctx context.Context, userID, deckID int64) (bool, error)
}
