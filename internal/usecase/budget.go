package usecase

import (
	"context"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
)

const (
	// DefaultNewLimit and DefaultReviewLimit apply when a user has no
	// settings row yet.
	DefaultNewLimit    int32 = 20
	DefaultReviewLimit int32 = 200

	// AccuracyWindowDays is the lookback for the adaptive limiter's
	// recent-accuracy signal.
	AccuracyWindowDays = 7
)

// AdaptiveLimits adjusts the configured caps from recent performance. The
// curve is deliberately stepwise: high accuracy with a small backlog earns a
// 25% raise on both caps, a growing backlog squeezes the new-card cap first,
// and a severe backlog stops introductions entirely. New-card output is
// non-increasing in backlog.
func AdaptiveLimits(base entity.UserSettings, backlog int32, accuracy float64) (newLimit, reviewLimit int32) {
	newLimit, reviewLimit = base.NewLimit, base.ReviewLimit

	switch {
	case backlog >= 250:
		newLimit = 0
	case backlog >= 100:
		newLimit = base.NewLimit / 2
	case backlog < 20 && accuracy >= 0.9:
		newLimit = base.NewLimit + base.NewLimit/4
		reviewLimit = base.ReviewLimit + base.ReviewLimit/4
	}
	return newLimit, reviewLimit
}

// dayStartUTC truncates t to the start of its UTC day. "Today" is UTC
// uniformly; per-user local days are layered above this core.
func dayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfDayUTC is the exclusive upper bound of t's UTC day. Review selection
// uses it as the due deadline so once-a-day students see everything due today.
func endOfDayUTC(t time.Time) time.Time {
	return dayStartUTC(t).Add(24 * time.Hour)
}

// effectiveSettings resolves the caps for a scope: deck-level override when
// grading from a deck, else the user row, else compiled defaults.
func (u *studyUsecase) effectiveSettings(ctx context.Context, userID, deckID int64) (entity.UserSettings, error) {
	if deckID > 0 {
		ds, err := u.settings.GetDeck(ctx, userID, deckID)
		if err != nil {
			return entity.UserSettings{}, err
		}
		if ds != nil {
			return entity.UserSettings{UserID: userID, NewLimit: ds.NewLimit, ReviewLimit: ds.ReviewLimit}, nil
		}
	}
	us, err := u.settings.Get(ctx, userID)
	if err != nil {
		return entity.UserSettings{}, err
	}
	if us == nil {
		return entity.UserSettings{UserID: userID, NewLimit: DefaultNewLimit, ReviewLimit: DefaultReviewLimit}, nil
	}
	return *us, nil
}

// resolveLimits applies the adaptive curve on top of configured caps. Deck
// scope keeps its configured caps verbatim; adaptation is global-scope only.
func (u *studyUsecase) resolveLimits(ctx context.Context, userID, deckID int64, now time.Time) (entity.UserSettings, error) {
	base, err := u.effectiveSettings(ctx, userID, deckID)
	if err != nil {
		return entity.UserSettings{}, err
	}
	if deckID > 0 {
		return base, nil
	}

	backlog, err := u.cards.CountReviewBacklog(ctx, userID, now)
	if err != nil {
		return entity.UserSettings{}, err
	}
	acc, err := u.logs.AccuracySince(ctx, userID, now.Add(-AccuracyWindowDays*24*time.Hour))
	if err != nil {
		return entity.UserSettings{}, err
	}

	base.NewLimit, base.ReviewLimit = AdaptiveLimits(base, backlog, acc.Ratio())
	return base, nil
}

// Stats reports today's accounting for a user, optionally scoped to a deck.
func (u *studyUsecase) Stats(ctx context.Context, userID, deckID int64) (entity.StudyStats, error) {
	now := u.clock()
	limits, err := u.resolveLimits(ctx, userID, deckID, now)
	if err != nil {
		return entity.StudyStats{}, err
	}
	return u.statsWithLimits(ctx, userID, deckID, limits, now)
}

func (u *studyUsecase) statsWithLimits(ctx context.Context, userID, deckID int64, limits entity.UserSettings, now time.Time) (entity.StudyStats, error) {
	dayStart := dayStartUTC(now)
	newToday, err := u.cards.CountNewSince(ctx, userID, deckID, dayStart)
	if err != nil {
		return entity.StudyStats{}, err
	}
	reviewsToday, err := u.cards.CountReviewsSince(ctx, userID, deckID, dayStart)
	if err != nil {
		return entity.StudyStats{}, err
	}
	return entity.StudyStats{
		NewToday:     newToday,
		ReviewsToday: reviewsToday,
		NewLimit:     limits.NewLimit,
		ReviewLimit:  limits.ReviewLimit,
	}, nil
}
