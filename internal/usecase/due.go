package usecase

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

// Pull builds the ordered study queue for one refill. Tier order is strict:
// relearning, learning, new-state cards, due reviews, then fresh words.
// Relearning/learning/review draw on the review budget, new-state cards and
// fresh words on the new budget. The client's exclude list is honored in
// every tier.
func (u *studyUsecase) Pull(ctx context.Context, q PullQuery) (*PullResult, error) {
	now := u.clock()

	limits, err := u.resolveLimits(ctx, q.UserID, q.DeckID, now)
	if err != nil {
		return nil, err
	}
	stats, err := u.statsWithLimits(ctx, q.UserID, q.DeckID, limits, now)
	if err != nil {
		return nil, err
	}

	newBudget := maxI32(0, limits.NewLimit-stats.NewToday)
	reviewBudget := maxI32(0, limits.ReviewLimit-stats.ReviewsToday)
	if q.ExtraStudy {
		newBudget = ExtraStudyNewAllowance
		reviewBudget = ExtraStudyReviewAllowance
	}

	sel := &selection{
		exclude: append([]int64(nil), q.ExcludeCardIDs...),
	}

	grace := now.Add(GraceWindow)
	endOfDay := endOfDayUTC(now)

	// Tier 1 + 2: step-ladder cards inside the grace window.
	for _, states := range [][]entity.CardState{
		{entity.StateRelearning},
		{entity.StateLearning},
	} {
		if err := u.fill(ctx, sel, q, states, grace, now, &reviewBudget); err != nil {
			return nil, err
		}
	}

	// Tier 3: cards that exist but were never graded.
	if err := u.fill(ctx, sel, q, []entity.CardState{entity.StateNew}, endOfDay, now, &newBudget); err != nil {
		return nil, err
	}

	// Tier 4: reviews due by end of today.
	if err := u.fill(ctx, sel, q, []entity.CardState{entity.StateReview}, endOfDay, now, &reviewBudget); err != nil {
		return nil, err
	}

	// Tier 5: words with no user word yet. Each fresh word needs room for
	// both of its directions.
	if len(q.WordIDs) == 0 && newBudget >= 2 {
		fresh, err := u.freshItems(ctx, q.UserID, q.DeckID, newBudget/2)
		if err != nil {
			return nil, err
		}
		sel.items = append(sel.items, fresh...)
		newBudget -= int32(len(fresh))
	}

	stats.HasMoreNew, stats.HasMoreReviews, err = u.probeMore(ctx, sel, q, now, endOfDay)
	if err != nil {
		return nil, err
	}

	status := PullSuccess
	if len(sel.items) == 0 && !q.ExtraStudy &&
		limits.NewLimit-stats.NewToday <= 0 && limits.ReviewLimit-stats.ReviewsToday <= 0 {
		status = PullDailyLimitReached
	}

	if q.Limit > 0 && int32(len(sel.items)) > q.Limit {
		sel.items = sel.items[:q.Limit]
	}
	return &PullResult{Status: status, Items: sel.items, Stats: stats}, nil
}

type selection struct {
	items   []entity.StudyItem
	exclude []int64
}

func (u *studyUsecase) fill(ctx context.Context, sel *selection, q PullQuery, states []entity.CardState, dueBefore, now time.Time, budget *int32) error {
	if *budget <= 0 {
		return nil
	}
	items, err := u.cards.ListDue(ctx, repository.DueQuery{
		UserID:     q.UserID,
		DeckID:     q.DeckID,
		WordIDs:    q.WordIDs,
		States:     states,
		DueBefore:  dueBefore,
		Now:        now,
		ExcludeIDs: sel.exclude,
		Limit:      *budget,
	})
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Card.IsLeech {
			items[i].LeechHint = items[i].Word.Example
		}
	}
	sel.items = append(sel.items, items...)
	sel.exclude = append(sel.exclude, lo.Map(items, func(it entity.StudyItem, _ int) int64 { return it.Card.ID })...)
	*budget -= int32(len(items))
	return nil
}

// freshItems introduces up to wordBudget unseen words, two queue entries each.
// The repository already deduplicates by base word; direction order is biased
// toward production (reverse first) member by member.
func (u *studyUsecase) freshItems(ctx context.Context, userID, deckID int64, wordBudget int32) ([]entity.StudyItem, error) {
	words, err := u.words.ListFresh(ctx, repository.FreshWordQuery{
		UserID: userID,
		DeckID: deckID,
		Limit:  wordBudget,
	})
	if err != nil {
		return nil, err
	}

	items := make([]entity.StudyItem, 0, len(words)*2)
	for _, w := range words {
		first, second := entity.DirectionReverse, entity.DirectionForward
		if u.uniform() >= ReverseFirstBias {
			first, second = entity.DirectionForward, entity.DirectionReverse
		}
		for _, dir := range []entity.Direction{first, second} {
			items = append(items, entity.StudyItem{
				Card: entity.Card{
					UserID:     userID,
					WordID:     w.ID,
					Direction:  dir,
					State:      entity.StateNew,
					EaseFactor: defaultEaseFactor,
				},
				Word: w,
			})
		}
	}
	return items, nil
}

// probeMore runs the cheap EXISTS checks backing the extra-study affordance.
func (u *studyUsecase) probeMore(ctx context.Context, sel *selection, q PullQuery, now, endOfDay time.Time) (moreNew, moreReviews bool, err error) {
	moreReviews, err = u.cards.ExistsDue(ctx, repository.DueQuery{
		UserID:     q.UserID,
		DeckID:     q.DeckID,
		WordIDs:    q.WordIDs,
		States:     []entity.CardState{entity.StateRelearning, entity.StateLearning, entity.StateReview},
		DueBefore:  endOfDay,
		Now:        now,
		ExcludeIDs: sel.exclude,
	})
	if err != nil {
		return false, false, err
	}

	moreNew, err = u.cards.ExistsDue(ctx, repository.DueQuery{
		UserID:     q.UserID,
		DeckID:     q.DeckID,
		WordIDs:    q.WordIDs,
		States:     []entity.CardState{entity.StateNew},
		DueBefore:  endOfDay,
		Now:        now,
		ExcludeIDs: sel.exclude,
	})
	if err != nil {
		return false, false, err
	}
	if !moreNew && len(q.WordIDs) == 0 {
		moreNew, err = u.words.ExistsFresh(ctx, q.UserID, q.DeckID)
		if err != nil {
			return false, false, err
		}
	}
	return moreNew, moreReviews, nil
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
