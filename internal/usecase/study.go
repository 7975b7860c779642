package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
	"github.com/eslsoft/srsd/internal/scheduler"
)

const (
	// MaxSessionAttempts caps how often one card is re-shown inside a single
	// session before it gets buried out of the queue.
	MaxSessionAttempts int32 = 3

	// BuryDuration keeps an exhausted card out of the selector.
	BuryDuration = 4 * time.Hour

	// GraceWindow is the lookahead added when selecting learning-state cards
	// so the user sees them in the same sitting.
	GraceWindow = 15 * time.Minute

	// ExtraStudyNewAllowance and ExtraStudyReviewAllowance are the fixed
	// budgets granted when the user opts into extra study past the daily caps.
	ExtraStudyNewAllowance    int32 = 5
	ExtraStudyReviewAllowance int32 = 10

	// ReverseFirstBias is the probability a fresh word leads with its reverse
	// (production) card rather than the forward (recognition) one.
	ReverseFirstBias = 0.7

	defaultEaseFactor = 2.5
)

// GradeCommand identifies one grading tick.
type GradeCommand struct {
	UserID     int64
	CardID     int64
	Rating     entity.Rating
	SessionKey string
	DeckID     int64
}

// PullQuery asks the due selector for the next batch of cards.
type PullQuery struct {
	UserID         int64
	DeckID         int64 // 0 = all decks
	WordIDs        []int64
	ExcludeCardIDs []int64
	ExtraStudy     bool
	Limit          int32
}

// PullStatus reports how a pull ended.
type PullStatus string

const (
	PullSuccess           PullStatus = "success"
	PullDailyLimitReached PullStatus = "daily_limit_reached"
)

// PullResult is the selector output: the ordered queue plus accounting.
type PullResult struct {
	Status PullStatus
	Items  []entity.StudyItem
	Stats  entity.StudyStats
}

// SessionResult is returned by CreateSession.
type SessionResult struct {
	Session      entity.Session
	Items        []entity.StudyItem
	StudiedToday int32
	TotalDue     int32
}

// StudyUsecase is the scheduling core's API. Every operation authenticates
// the acting user against card ownership; there is no implicit current user.
type StudyUsecase interface {
	CreateSession(ctx context.Context, userID int64, scope entity.SessionScope, limit int32) (*SessionResult, error)
	Pull(ctx context.Context, q PullQuery) (*PullResult, error)
	Grade(ctx context.Context, cmd GradeCommand) (*entity.GradeResult, error)
	EnsureCardsForWord(ctx context.Context, userID, wordID int64) ([]entity.Card, error)
	Stats(ctx context.Context, userID, deckID int64) (entity.StudyStats, error)
}

// NewStudyUsecase wires the repositories and the scheduling algebra.
func NewStudyUsecase(
	store repository.Store,
	cards repository.CardRepository,
	words repository.WordRepository,
	userWords repository.UserWordRepository,
	settings repository.SettingsRepository,
	logs repository.ReviewLogRepository,
	sched *scheduler.Scheduler,
	logger logrus.FieldLogger,
) StudyUsecase {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &studyUsecase{
		store:     store,
		cards:     cards,
		words:     words,
		userWords: userWords,
		settings:  settings,
		logs:      logs,
		sched:     sched,
		logger:    logger,
		clock:     time.Now,
		intn:      rng.Intn,
		uniform:   rng.Float64,
	}
}

type studyUsecase struct {
	store     repository.Store
	cards     repository.CardRepository
	words     repository.WordRepository
	userWords repository.UserWordRepository
	settings  repository.SettingsRepository
	logs      repository.ReviewLogRepository
	sched     *scheduler.Scheduler
	logger    logrus.FieldLogger

	clock   func() time.Time
	intn    func(n int) int
	uniform func() float64
}

// Grade runs one grading tick: lock the card, enforce the new-card cap, apply
// the algebra, persist everything and reconcile the word status, all in one
// transaction. On any error the transaction rolls back whole; counters never
// move partially.
func (u *studyUsecase) Grade(ctx context.Context, cmd GradeCommand) (*entity.GradeResult, error) {
	if !cmd.Rating.Valid() {
		return nil, entity.ErrInvalidRating
	}

	var result *entity.GradeResult
	err := u.store.WithinTx(ctx, func(ctx context.Context) error {
		card, err := u.cards.GetForUpdate(ctx, cmd.CardID)
		if err != nil {
			return err
		}
		if card.UserID != cmd.UserID {
			return entity.ErrAccessDenied
		}

		now := u.clock()

		// Introducing a new card counts against today's cap. The settings row
		// lock serializes the re-check across concurrent grades.
		if card.FirstReviewedAt == nil {
			if err := u.checkNewCardCap(ctx, cmd.UserID, cmd.DeckID, now); err != nil {
				return err
			}
		}

		oldState := card.State
		res := u.sched.Grade(snapshotOf(card), cmd.Rating)
		u.applyGrade(card, res, cmd.Rating, now)

		requeuePos := u.requeuePosition(cmd.Rating, res, card, now)

		if err := u.cards.Update(ctx, card); err != nil {
			return err
		}
		if err := u.logs.Append(ctx, &repository.ReviewLog{
			CardID:       card.ID,
			UserID:       card.UserID,
			Rating:       cmd.Rating,
			OldState:     oldState,
			NewState:     card.State,
			IntervalDays: card.IntervalDays,
			EaseFactor:   card.EaseFactor,
			ReviewedAt:   now,
		}); err != nil {
			return err
		}

		status := u.reconcile(ctx, card)

		result = &entity.GradeResult{
			CardID:          card.ID,
			State:           card.State,
			StepIndex:       card.StepIndex,
			Repetitions:     card.Repetitions,
			IntervalDays:    card.IntervalDays,
			EaseFactor:      card.EaseFactor,
			Lapses:          card.Lapses,
			NextReviewAt:    card.NextReviewAt,
			SessionAttempts: card.SessionAttempts,
			RequeuePosition: requeuePos,
			RequeueMinutes:  res.RequeueMinutes,
			IsBuried:        card.Buried(now),
			IsLeech:         card.IsLeech,
			WordStatus:      status,
		}
		if card.IsLeech {
			result.LeechHint = u.leechHint(ctx, card.WordID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *studyUsecase) checkNewCardCap(ctx context.Context, userID, deckID int64, now time.Time) error {
	// The settings row lock serializes concurrent introductions for the user.
	if _, err := u.settings.GetForUpdate(ctx, userID); err != nil {
		return err
	}
	// Resolve the cap exactly as Pull does so a card handed out under an
	// adaptive or deck-scoped budget is gradable under the same budget.
	limits, err := u.resolveLimits(ctx, userID, deckID, now)
	if err != nil {
		return err
	}
	count, err := u.cards.CountNewSince(ctx, userID, deckID, dayStartUTC(now))
	if err != nil {
		return err
	}
	if count >= limits.NewLimit {
		return entity.ErrDailyLimitExceeded
	}
	return nil
}

func (u *studyUsecase) applyGrade(card *entity.Card, res scheduler.Result, rating entity.Rating, now time.Time) {
	card.State = res.State
	card.StepIndex = res.StepIndex
	card.Repetitions = res.Repetitions
	card.IntervalDays = res.IntervalDays
	card.EaseFactor = res.EaseFactor
	card.Lapses = res.Lapses

	if card.FirstReviewedAt == nil {
		t := now
		card.FirstReviewedAt = &t
	}
	last := now
	card.LastReviewedAt = &last

	var next time.Time
	if res.RequeueMinutes != nil {
		next = now.Add(time.Duration(*res.RequeueMinutes) * time.Minute)
	} else {
		next = now.Add(time.Duration(res.DaysUntilReview) * 24 * time.Hour)
	}
	card.NextReviewAt = &next

	if rating == entity.RatingKnow {
		card.CorrectCount++
	} else {
		card.IncorrectCount++
	}

	if card.SessionAttempts < MaxSessionAttempts {
		card.SessionAttempts++
	}
	card.IsLeech = card.Lapses >= u.sched.Params().LeechThreshold
	card.UpdatedAt = now
}

// requeuePosition computes the "show again after N cards" hint and buries the
// card once the session attempt cap is hit.
func (u *studyUsecase) requeuePosition(rating entity.Rating, res scheduler.Result, card *entity.Card, now time.Time) *int32 {
	if card.SessionAttempts >= MaxSessionAttempts {
		until := now.Add(BuryDuration)
		card.BuriedUntil = &until
		return nil
	}
	if res.State == entity.StateReview {
		// Graduation or post-relapse return: the card leaves the session.
		return nil
	}
	var pos int32
	switch rating {
	case entity.RatingDontKnow:
		pos = int32(8 + u.intn(8)) // [8, 15]
	case entity.RatingDoubt:
		pos = int32(15 + u.intn(11)) // [15, 25]
	default:
		return nil
	}
	return &pos
}

// reconcile recomputes the owning word's status from both cards. A failure
// here is logged and swallowed: the grade itself already stands.
func (u *studyUsecase) reconcile(ctx context.Context, card *entity.Card) entity.WordStatus {
	sibling, err := u.cards.GetSibling(ctx, card.UserWordID, card.ID)
	if err != nil {
		u.logger.WithError(err).WithField("user_word_id", card.UserWordID).Warn("reconcile: load sibling failed")
		return ""
	}

	forward, reverse := card, sibling
	if card.Direction == entity.DirectionReverse {
		forward, reverse = sibling, card
	}
	status := WordStatusFor(forward, reverse)
	if err := u.userWords.UpdateStatus(ctx, card.UserWordID, status); err != nil {
		u.logger.WithError(err).WithField("user_word_id", card.UserWordID).Warn("reconcile: update status failed")
		return ""
	}
	return status
}

func (u *studyUsecase) leechHint(ctx context.Context, wordID int64) string {
	word, err := u.words.GetByID(ctx, wordID)
	if err != nil || word == nil {
		return ""
	}
	return word.Example
}

func snapshotOf(card *entity.Card) scheduler.Snapshot {
	return scheduler.Snapshot{
		State:        card.State,
		StepIndex:    card.StepIndex,
		Repetitions:  card.Repetitions,
		IntervalDays: card.IntervalDays,
		EaseFactor:   card.EaseFactor,
		Lapses:       card.Lapses,
	}
}
