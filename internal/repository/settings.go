package repository

import (
	"context"

	"github.com/eslsoft/srsd/internal/entity"
)

// SettingsRepository reads and locks study caps. GetForUpdate serializes
// concurrent new-card introductions for one user: it must hold a row lock on
// the user's settings row for the rest of the surrounding transaction.
type SettingsRepository interface {
	Get(ctx context.Context, userID int64) (*entity.UserSettings, error)
	GetForUpdate(ctx context.Context, userID int64) (*entity.UserSettings, error)
	GetDeck(ctx context.Context, userID, deckID int64) (*entity.DeckSettings, error)
}
