package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

const userWordColumns = `uw.id, uw.user_id, uw.word_id, uw.status, uw.created_at, uw.updated_at`

type userWordRepository struct {
	store *Store
}

// NewUserWordRepository constructs a pgx-backed user-word repository.
func NewUserWordRepository(store *Store) repository.UserWordRepository {
	return &userWordRepository{store: store}
}

func (r *userWordRepository) GetByID(ctx context.Context, userID, id int64) (*entity.UserWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.store.conn(ctx).QueryRow(ctx,
		`SELECT `+userWordColumns+` FROM user_words uw
		 WHERE uw.id = $1 AND uw.user_id = $2 AND uw.deleted_at IS NULL`,
		id, userID)
	uw, err := scanUserWord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserWordNotFound
		}
		return nil, fmt.Errorf("get user word: %w", err)
	}
	return uw, nil
}

func (r *userWordRepository) FindByWord(ctx context.Context, userID, wordID int64) (*entity.UserWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.store.conn(ctx).QueryRow(ctx,
		`SELECT `+userWordColumns+` FROM user_words uw
		 WHERE uw.user_id = $1 AND uw.word_id = $2 AND uw.deleted_at IS NULL`,
		userID, wordID)
	uw, err := scanUserWord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user word: %w", err)
	}
	return uw, nil
}

func (r *userWordRepository) Create(ctx context.Context, userWord *entity.UserWord) (*entity.UserWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created := *userWord
	err := r.store.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_words (user_id, word_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userWord.UserID, userWord.WordID, string(userWord.Status),
		userWord.CreatedAt, userWord.UpdatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, translatePgError(err)
	}
	return &created, nil
}

func (r *userWordRepository) UpdateStatus(ctx context.Context, id int64, status entity.WordStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := r.store.conn(ctx).Exec(ctx,
		`UPDATE user_words SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update user word status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserWordNotFound
	}
	return nil
}

func scanUserWord(row pgx.Row) (*entity.UserWord, error) {
	var (
		uw     entity.UserWord
		status string
	)
	if err := row.Scan(&uw.ID, &uw.UserID, &uw.WordID, &status, &uw.CreatedAt, &uw.UpdatedAt); err != nil {
		return nil, err
	}
	uw.Status = entity.WordStatus(status)
	return &uw, nil
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return entity.ErrDuplicateUserWord
		}
	}
	return err
}
