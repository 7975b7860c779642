package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

type reviewLogRepository struct {
	store *Store
}

// NewReviewLogRepository constructs a pgx-backed review log repository.
func NewReviewLogRepository(store *Store) repository.ReviewLogRepository {
	return &reviewLogRepository{store: store}
}

func (r *reviewLogRepository) Append(ctx context.Context, log *repository.ReviewLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.store.conn(ctx).QueryRow(ctx, `
		INSERT INTO review_logs (
			card_id, user_id, rating, old_state, new_state,
			interval_days, ease_factor, reviewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		log.CardID, log.UserID, int32(log.Rating),
		string(log.OldState), string(log.NewState),
		log.IntervalDays, log.EaseFactor, log.ReviewedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("append review log: %w", err)
	}
	return nil
}

func (r *reviewLogRepository) AccuracySince(ctx context.Context, userID int64, since time.Time) (repository.Accuracy, error) {
	if err := ctx.Err(); err != nil {
		return repository.Accuracy{}, err
	}
	var acc repository.Accuracy
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE rating = $3), COUNT(*)
		FROM review_logs
		WHERE user_id = $1 AND reviewed_at >= $2`,
		userID, since, int32(entity.RatingKnow),
	).Scan(&acc.Correct, &acc.Total)
	if err != nil {
		return repository.Accuracy{}, fmt.Errorf("accuracy window: %w", err)
	}
	return acc, nil
}
