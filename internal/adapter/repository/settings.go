package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

type settingsRepository struct {
	store *Store
}

// NewSettingsRepository constructs a pgx-backed settings repository.
func NewSettingsRepository(store *Store) repository.SettingsRepository {
	return &settingsRepository{store: store}
}

func (r *settingsRepository) Get(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	return r.get(ctx, userID, false)
}

// GetForUpdate locks the settings row for the rest of the surrounding
// transaction. The grading path relies on this lock to serialize concurrent
// new-card introductions against the daily cap.
func (r *settingsRepository) GetForUpdate(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	return r.get(ctx, userID, true)
}

func (r *settingsRepository) get(ctx context.Context, userID int64, lock bool) (*entity.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sql := `SELECT user_id, new_limit, review_limit FROM user_settings WHERE user_id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var s entity.UserSettings
	err := r.store.conn(ctx).QueryRow(ctx, sql, userID).Scan(&s.UserID, &s.NewLimit, &s.ReviewLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) GetDeck(ctx context.Context, userID, deckID int64) (*entity.DeckSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s entity.DeckSettings
	err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT user_id, deck_id, new_limit, review_limit FROM deck_settings
		 WHERE user_id = $1 AND deck_id = $2`,
		userID, deckID).Scan(&s.UserID, &s.DeckID, &s.NewLimit, &s.ReviewLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deck settings: %w", err)
	}
	return &s, nil
}
