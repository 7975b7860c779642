package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

// CreateSession opens a new study sitting: it mints an opaque key, zeroes the
// per-session attempt counters for every card in scope, and hands the client
// its initial queue. The server keeps no authoritative queue afterwards.
func (u *studyUsecase) CreateSession(ctx context.Context, userID int64, scope entity.SessionScope, limit int32) (*SessionResult, error) {
	switch scope.Kind {
	case entity.ScopeAll:
	case entity.ScopeDeck:
		if scope.DeckID <= 0 {
			return nil, entity.ErrInvalidScope
		}
	case entity.ScopeWordIDs:
		if len(scope.WordIDs) == 0 {
			return nil, entity.ErrInvalidScope
		}
	default:
		return nil, entity.ErrInvalidScope
	}

	if err := u.cards.ResetSessionAttempts(ctx, userID, scope); err != nil {
		return nil, err
	}

	now := u.clock()
	pull, err := u.Pull(ctx, PullQuery{
		UserID:  userID,
		DeckID:  scope.DeckID,
		WordIDs: scope.WordIDs,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	totalDue, err := u.cards.CountDue(ctx, repository.DueQuery{
		UserID:    userID,
		DeckID:    scope.DeckID,
		WordIDs:   scope.WordIDs,
		States:    []entity.CardState{entity.StateLearning, entity.StateRelearning, entity.StateReview},
		DueBefore: endOfDayUTC(now),
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	return &SessionResult{
		Session: entity.Session{
			Key:       uuid.NewString(),
			UserID:    userID,
			Scope:     scope,
			StartedAt: now,
		},
		Items:        pull.Items,
		StudiedToday: pull.Stats.NewToday + pull.Stats.ReviewsToday,
		TotalDue:     totalDue,
	}, nil
}

// EnsureCardsForWord creates the UserWord and both directional cards if they
// do not exist yet. Idempotent: repeated calls return the same two cards,
// forward first, and never duplicate.
func (u *studyUsecase) EnsureCardsForWord(ctx context.Context, userID, wordID int64) ([]entity.Card, error) {
	var out []entity.Card
	err := u.store.WithinTx(ctx, func(ctx context.Context) error {
		word, err := u.words.GetByID(ctx, wordID)
		if err != nil {
			return err
		}
		if word == nil {
			return entity.ErrWordNotFound
		}

		uw, err := u.userWords.FindByWord(ctx, userID, wordID)
		if err != nil {
			return err
		}
		if uw == nil {
			fresh := &entity.UserWord{UserID: userID, WordID: wordID}
			fresh.Normalize(u.clock())
			uw, err = u.userWords.Create(ctx, fresh)
			if errors.Is(err, entity.ErrDuplicateUserWord) {
				// Lost a race with a concurrent ensure; take the winner's row.
				uw, err = u.userWords.FindByWord(ctx, userID, wordID)
			}
			if err != nil {
				return err
			}
			if uw == nil {
				return fmt.Errorf("resolve user word %d/%d after insert conflict: %w", userID, wordID, entity.ErrUserWordNotFound)
			}
		}

		existing, err := u.cards.ListByUserWord(ctx, uw.ID)
		if err != nil {
			return err
		}
		byDir := make(map[entity.Direction]entity.Card, 2)
		for _, c := range existing {
			byDir[c.Direction] = c
		}

		now := u.clock()
		for _, dir := range []entity.Direction{entity.DirectionForward, entity.DirectionReverse} {
			if c, ok := byDir[dir]; ok {
				out = append(out, c)
				continue
			}
			created, err := u.cards.Create(ctx, &entity.Card{
				UserWordID: uw.ID,
				UserID:     userID,
				WordID:     wordID,
				Direction:  dir,
				State:      entity.StateNew,
				EaseFactor: defaultEaseFactor,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err != nil {
				return err
			}
			out = append(out, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
