package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

const wordColumns = `w.id, w.deck_id, w.forward, w.reverse, w.example,
	w.audio_url, w.frequency_rank, w.level, w.base_word_id, w.created_at`

type wordRepository struct {
	store *Store
}

// NewWordRepository constructs a pgx-backed word repository.
func NewWordRepository(store *Store) repository.WordRepository {
	return &wordRepository{store: store}
}

func (r *wordRepository) GetByID(ctx context.Context, id int64) (*entity.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.store.conn(ctx).QueryRow(ctx,
		`SELECT `+wordColumns+` FROM words w WHERE w.id = $1`, id)
	word, err := scanWord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrWordNotFound
		}
		return nil, fmt.Errorf("get word: %w", err)
	}
	return word, nil
}

// ListFresh picks words the user has not taken into study. One word per
// base-word id so two inflections of the same lemma never enter together;
// within a lemma the lowest frequency rank wins.
func (r *wordRepository) ListFresh(ctx context.Context, q repository.FreshWordQuery) ([]entity.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sql := `
		SELECT ` + wordColumns + ` FROM (
			SELECT DISTINCT ON (w.base_word_id) ` + wordColumns + `
			FROM words w
			WHERE NOT EXISTS (
				SELECT 1 FROM user_words uw
				WHERE uw.user_id = $1 AND uw.word_id = w.id AND uw.deleted_at IS NULL
			)`
	args := []any{q.UserID}
	if q.DeckID > 0 {
		sql += ` AND w.deck_id = $2`
		args = append(args, q.DeckID)
	}
	sql += `
			ORDER BY w.base_word_id, w.frequency_rank ASC
		) w
		ORDER BY w.frequency_rank ASC, w.level ASC, random()`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.store.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list fresh words: %w", err)
	}
	defer rows.Close()

	var words []entity.Word
	for rows.Next() {
		word, err := scanWord(rows)
		if err != nil {
			return nil, fmt.Errorf("list fresh words: %w", err)
		}
		words = append(words, *word)
	}
	return words, rows.Err()
}

func (r *wordRepository) ExistsFresh(ctx context.Context, userID, deckID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sql := `
		SELECT EXISTS (
			SELECT 1 FROM words w
			WHERE NOT EXISTS (
				SELECT 1 FROM user_words uw
				WHERE uw.user_id = $1 AND uw.word_id = w.id AND uw.deleted_at IS NULL
			)`
	args := []any{userID}
	if deckID > 0 {
		sql += ` AND w.deck_id = $2`
		args = append(args, deckID)
	}
	sql += `)`

	var exists bool
	if err := r.store.conn(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe fresh words: %w", err)
	}
	return exists, nil
}

func scanWord(row pgx.Row) (*entity.Word, error) {
	var w entity.Word
	err := row.Scan(
		&w.ID, &w.DeckID, &w.Forward, &w.Reverse, &w.Example,
		&w.AudioURL, &w.FrequencyRank, &w.Level, &w.BaseWordID, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
