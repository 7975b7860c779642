package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

const cardColumns = `c.id, c.user_word_id, c.user_id, c.word_id, c.direction, c.state,
	c.step_index, c.repetitions, c.interval_days, c.ease_factor, c.lapses,
	c.next_review_at, c.last_reviewed_at, c.first_reviewed_at,
	c.session_attempts, c.buried_until, c.correct_count, c.incorrect_count,
	c.is_leech, c.created_at, c.updated_at`

type cardRepository struct {
	store *Store
}

// NewCardRepository constructs a pgx-backed card repository.
func NewCardRepository(store *Store) repository.CardRepository {
	return &cardRepository{store: store}
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = $1`, id)
}

func (r *cardRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = $1 FOR UPDATE`, id)
}

func (r *cardRepository) GetSibling(ctx context.Context, userWordID, excludeCardID int64) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, err := r.getOne(ctx,
		`SELECT `+cardColumns+` FROM cards c WHERE c.user_word_id = $1 AND c.id <> $2`,
		userWordID, excludeCardID)
	if errors.Is(err, entity.ErrCardNotFound) {
		return nil, nil
	}
	return card, err
}

func (r *cardRepository) getOne(ctx context.Context, sql string, args ...any) (*entity.Card, error) {
	row := r.store.conn(ctx).QueryRow(ctx, sql, args...)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (r *cardRepository) Create(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.store.conn(ctx).QueryRow(ctx, `
		INSERT INTO cards (
			user_word_id, user_id, word_id, direction, state, step_index,
			repetitions, interval_days, ease_factor, lapses,
			next_review_at, last_reviewed_at, first_reviewed_at,
			session_attempts, buried_until, correct_count, incorrect_count,
			is_leech, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		RETURNING id`,
		card.UserWordID, card.UserID, card.WordID, string(card.Direction),
		string(card.State), card.StepIndex, card.Repetitions, card.IntervalDays,
		card.EaseFactor, card.Lapses,
		toTimestamptz(card.NextReviewAt), toTimestamptz(card.LastReviewedAt),
		toTimestamptz(card.FirstReviewedAt),
		card.SessionAttempts, toTimestamptz(card.BuriedUntil),
		card.CorrectCount, card.IncorrectCount, card.IsLeech,
		card.CreatedAt, card.UpdatedAt,
	)
	created := *card
	if err := row.Scan(&created.ID); err != nil {
		return nil, translatePgError(err)
	}
	return &created, nil
}

func (r *cardRepository) Update(ctx context.Context, card *entity.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := r.store.conn(ctx).Exec(ctx, `
		UPDATE cards SET
			state = $2, step_index = $3, repetitions = $4, interval_days = $5,
			ease_factor = $6, lapses = $7,
			next_review_at = $8, last_reviewed_at = $9, first_reviewed_at = $10,
			session_attempts = $11, buried_until = $12,
			correct_count = $13, incorrect_count = $14, is_leech = $15,
			updated_at = $16
		WHERE id = $1`,
		card.ID, string(card.State), card.StepIndex, card.Repetitions,
		card.IntervalDays, card.EaseFactor, card.Lapses,
		toTimestamptz(card.NextReviewAt), toTimestamptz(card.LastReviewedAt),
		toTimestamptz(card.FirstReviewedAt),
		card.SessionAttempts, toTimestamptz(card.BuriedUntil),
		card.CorrectCount, card.IncorrectCount, card.IsLeech, card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrCardNotFound
	}
	return nil
}

func (r *cardRepository) ListByUserWord(ctx context.Context, userWordID int64) ([]entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.store.conn(ctx).Query(ctx,
		`SELECT `+cardColumns+` FROM cards c WHERE c.user_word_id = $1 ORDER BY c.direction`,
		userWordID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []entity.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("list cards: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

func (r *cardRepository) ListDue(ctx context.Context, q repository.DueQuery) ([]entity.StudyItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	where, args := dueWhere(q)
	sql := `
		SELECT ` + cardColumns + `, ` + wordColumns + `
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE ` + where + `
		ORDER BY c.next_review_at ASC NULLS FIRST, random()`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.store.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	defer rows.Close()

	var items []entity.StudyItem
	for rows.Next() {
		item, err := scanStudyItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list due cards: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *cardRepository) ExistsDue(ctx context.Context, q repository.DueQuery) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	where, args := dueWhere(q)
	var exists bool
	err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards c WHERE `+where+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe due cards: %w", err)
	}
	return exists, nil
}

func (r *cardRepository) CountDue(ctx context.Context, q repository.DueQuery) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	where, args := dueWhere(q)
	var n int32
	err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cards c WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count due cards: %w", err)
	}
	return n, nil
}

// dueWhere renders the shared due-card predicate. New cards may carry a NULL
// next_review_at and still count as due; every other state needs a concrete
// due instant at or before the deadline.
func dueWhere(q repository.DueQuery) (string, []any) {
	args := []any{q.UserID}
	conds := []string{"c.user_id = $1"}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.DeckID > 0 {
		conds = append(conds,
			"c.word_id IN (SELECT id FROM words WHERE deck_id = "+arg(q.DeckID)+")")
	}
	if len(q.WordIDs) > 0 {
		conds = append(conds, "c.word_id = ANY("+arg(q.WordIDs)+")")
	}
	if len(q.States) > 0 {
		states := make([]string, 0, len(q.States))
		for _, s := range q.States {
			states = append(states, string(s))
		}
		conds = append(conds, "c.state = ANY("+arg(states)+")")
	}
	deadline := arg(q.DueBefore)
	conds = append(conds, fmt.Sprintf(
		"(c.next_review_at <= %s OR (c.state = 'new' AND c.next_review_at IS NULL))", deadline))
	conds = append(conds, "(c.buried_until IS NULL OR c.buried_until <= "+arg(q.Now)+")")
	if len(q.ExcludeIDs) > 0 {
		conds = append(conds, "NOT (c.id = ANY("+arg(q.ExcludeIDs)+"))")
	}
	return strings.Join(conds, " AND "), args
}

func (r *cardRepository) CountNewSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sql := `SELECT COUNT(*) FROM cards c WHERE c.user_id = $1 AND c.first_reviewed_at >= $2`
	args := []any{userID, dayStart}
	if deckID > 0 {
		sql += ` AND c.word_id IN (SELECT id FROM words WHERE deck_id = $3)`
		args = append(args, deckID)
	}
	var n int32
	if err := r.store.conn(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count new cards: %w", err)
	}
	return n, nil
}

func (r *cardRepository) CountReviewsSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sql := `SELECT COUNT(*) FROM cards c
		WHERE c.user_id = $1 AND c.last_reviewed_at >= $2 AND c.first_reviewed_at < $2`
	args := []any{userID, dayStart}
	if deckID > 0 {
		sql += ` AND c.word_id IN (SELECT id FROM words WHERE deck_id = $3)`
		args = append(args, deckID)
	}
	var n int32
	if err := r.store.conn(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func (r *cardRepository) CountReviewBacklog(ctx context.Context, userID int64, now time.Time) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int32
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM cards c
		WHERE c.user_id = $1 AND c.state = 'review' AND c.next_review_at <= $2`,
		userID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count backlog: %w", err)
	}
	return n, nil
}

func (r *cardRepository) ResetSessionAttempts(ctx context.Context, userID int64, scope entity.SessionScope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sql := `UPDATE cards SET session_attempts = 0 WHERE user_id = $1 AND session_attempts > 0`
	args := []any{userID}
	switch scope.Kind {
	case entity.ScopeDeck:
		sql += ` AND word_id IN (SELECT id FROM words WHERE deck_id = $2)`
		args = append(args, scope.DeckID)
	case entity.ScopeWordIDs:
		sql += ` AND word_id = ANY($2)`
		args = append(args, scope.WordIDs)
	}
	if _, err := r.store.conn(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("reset session attempts: %w", err)
	}
	return nil
}

func (r *cardRepository) ClearExpiredBurials(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tag, err := r.store.conn(ctx).Exec(ctx,
		`UPDATE cards SET buried_until = NULL WHERE buried_until IS NOT NULL AND buried_until <= $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("clear burials: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCard(row pgx.Row) (*entity.Card, error) {
	var (
		card                              entity.Card
		direction, state                  string
		nextAt, lastAt, firstAt, buriedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&card.ID, &card.UserWordID, &card.UserID, &card.WordID, &direction, &state,
		&card.StepIndex, &card.Repetitions, &card.IntervalDays, &card.EaseFactor,
		&card.Lapses, &nextAt, &lastAt, &firstAt,
		&card.SessionAttempts, &buriedAt, &card.CorrectCount, &card.IncorrectCount,
		&card.IsLeech, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if card.Direction, err = entity.ParseDirection(direction); err != nil {
		return nil, err
	}
	if card.State, err = entity.ParseCardState(state); err != nil {
		return nil, err
	}
	card.NextReviewAt = fromTimestamptz(nextAt)
	card.LastReviewedAt = fromTimestamptz(lastAt)
	card.FirstReviewedAt = fromTimestamptz(firstAt)
	card.BuriedUntil = fromTimestamptz(buriedAt)
	return &card, nil
}

func scanStudyItem(row pgx.Row) (entity.StudyItem, error) {
	var (
		item                              entity.StudyItem
		direction, state                  string
		nextAt, lastAt, firstAt, buriedAt pgtype.Timestamptz
	)
	card := &item.Card
	word := &item.Word
	err := row.Scan(
		&card.ID, &card.UserWordID, &card.UserID, &card.WordID, &direction, &state,
		&card.StepIndex, &card.Repetitions, &card.IntervalDays, &card.EaseFactor,
		&card.Lapses, &nextAt, &lastAt, &firstAt,
		&card.SessionAttempts, &buriedAt, &card.CorrectCount, &card.IncorrectCount,
		&card.IsLeech, &card.CreatedAt, &card.UpdatedAt,
		&word.ID, &word.DeckID, &word.Forward, &word.Reverse, &word.Example,
		&word.AudioURL, &word.FrequencyRank, &word.Level, &word.BaseWordID,
		&word.CreatedAt,
	)
	if err != nil {
		return entity.StudyItem{}, err
	}
	if card.Direction, err = entity.ParseDirection(direction); err != nil {
		return entity.StudyItem{}, err
	}
	if card.State, err = entity.ParseCardState(state); err != nil {
		return entity.StudyItem{}, err
	}
	card.NextReviewAt = fromTimestamptz(nextAt)
	card.LastReviewedAt = fromTimestamptz(lastAt)
	card.FirstReviewedAt = fromTimestamptz(firstAt)
	card.BuriedUntil = fromTimestamptz(buriedAt)
	return item, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
