package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslsoft/srsd/internal/entity"
)

// midpoint pins the interval smear to exactly 1.0x.
func midpoint() float64 { return 0.5 }

func newTestScheduler() *Scheduler {
	return New(DefaultParams(), WithUniform(midpoint))
}

func TestGradeTransitionTable(t *testing.T) {
	tests := []struct {
		name        string
		cur         Snapshot
		rating      entity.Rating
		wantState   entity.CardState
		wantStep    int32
		wantDays    int32
		wantMinutes *int32
		wantEase    float64
		wantLapses  int32
	}{
		{
			name:      "new dont-know enters learning step 0",
			cur:       Snapshot{State: entity.StateNew, EaseFactor: 2.5},
			rating:    entity.RatingDontKnow,
			wantState: entity.StateLearning, wantStep: 0, wantMinutes: ptr(int32(1)), wantEase: 2.5,
		},
		{
			name:      "new doubt enters learning step 1",
			cur:       Snapshot{State: entity.StateNew, EaseFactor: 2.5},
			rating:    entity.RatingDoubt,
			wantState: entity.StateLearning, wantStep: 1, wantMinutes: ptr(int32(10)), wantEase: 2.5,
		},
		{
			name:      "new know skips ladder into review",
			cur:       Snapshot{State: entity.StateNew, EaseFactor: 2.5},
			rating:    entity.RatingKnow,
			wantState: entity.StateReview, wantStep: 0, wantDays: 4, wantEase: 2.5,
		},
		{
			name:      "learning dont-know resets to step 0",
			cur:       Snapshot{State: entity.StateLearning, StepIndex: 1, Repetitions: 2, EaseFactor: 2.5},
			rating:    entity.RatingDontKnow,
			wantState: entity.StateLearning, wantStep: 0, wantMinutes: ptr(int32(1)), wantEase: 2.5,
		},
		{
			name:      "learning doubt repeats current step",
			cur:       Snapshot{State: entity.StateLearning, StepIndex: 1, EaseFactor: 2.5},
			rating:    entity.RatingDoubt,
			wantState: entity.StateLearning, wantStep: 1, wantMinutes: ptr(int32(10)), wantEase: 2.5,
		},
		{
			name:      "learning know advances a step",
			cur:       Snapshot{State: entity.StateLearning, StepIndex: 0, EaseFactor: 2.5},
			rating:    entity.RatingKnow,
			wantState: entity.StateLearning, wantStep: 1, wantMinutes: ptr(int32(10)), wantEase: 2.5,
		},
		{
			name:      "learning know on last step graduates",
			cur:       Snapshot{State: entity.StateLearning, StepIndex: 1, EaseFactor: 2.5},
			rating:    entity.RatingKnow,
			wantState: entity.StateReview, wantStep: 0, wantDays: 1, wantEase: 2.5,
		},
		{
			name:      "review dont-know lapses",
			cur:       Snapshot{State: entity.StateReview, IntervalDays: 30, Repetitions: 6, EaseFactor: 2.5},
			rating:    entity.RatingDontKnow,
			wantState: entity.StateRelearning, wantStep: 0, wantMinutes: ptr(int32(10)), wantEase: 2.3, wantLapses: 1,
		},
		{
			name:      "review doubt shrinks ease and nudges interval",
			cur:       Snapshot{State: entity.StateReview, IntervalDays: 10, EaseFactor: 2.5},
			rating:    entity.RatingDoubt,
			wantState: entity.StateReview, wantStep: 0, wantDays: 12, wantEase: 2.35,
		},
		{
			name:      "review know grows interval by ease times bonus",
			cur:       Snapshot{State: entity.StateReview, IntervalDays: 10, EaseFactor: 2.5},
			rating:    entity.RatingKnow,
			wantState: entity.StateReview, wantStep: 0, wantDays: 34, wantEase: 2.65,
		},
		{
			name:      "relearning dont-know resets ladder",
			cur:       Snapshot{State: entity.StateRelearning, StepIndex: 0, Lapses: 2, EaseFactor: 2.0},
			rating:    entity.RatingDontKnow,
			wantState: entity.StateRelearning, wantStep: 0, wantMinutes: ptr(int32(10)), wantEase: 2.0, wantLapses: 2,
		},
		{
			name:      "relearning doubt repeats step",
			cur:       Snapshot{State: entity.StateRelearning, StepIndex: 0, Lapses: 1, EaseFactor: 2.3},
			rating:    entity.RatingDoubt,
			wantState: entity.StateRelearning, wantStep: 0, wantMinutes: ptr(int32(10)), wantEase: 2.3, wantLapses: 1,
		},
		{
			name:      "relearning know on last step returns to review",
			cur:       Snapshot{State: entity.StateRelearning, StepIndex: 0, Lapses: 1, EaseFactor: 2.3},
			rating:    entity.RatingKnow,
			wantState: entity.StateReview, wantStep: 0, wantDays: 1, wantEase: 2.3, wantLapses: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestScheduler().Grade(tt.cur, tt.rating)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantStep, got.StepIndex)
			assert.Equal(t, tt.wantDays, got.IntervalDays)
			assert.Equal(t, tt.wantDays, got.DaysUntilReview)
			assert.Equal(t, tt.wantMinutes, got.RequeueMinutes)
			assert.InDelta(t, tt.wantEase, got.EaseFactor, 1e-9)
			assert.Equal(t, tt.wantLapses, got.Lapses)
		})
	}
}

func TestPerfectLearnerScenario(t *testing.T) {
	s := newTestScheduler()

	// Fresh card graded Know jumps straight to a 4 day review.
	r1 := s.Grade(Snapshot{State: entity.StateNew, EaseFactor: 2.5}, entity.RatingKnow)
	require.Equal(t, entity.StateReview, r1.State)
	require.Equal(t, int32(4), r1.IntervalDays)
	require.Nil(t, r1.RequeueMinutes)

	r2 := s.Grade(r1.Snapshot, entity.RatingKnow)
	require.Equal(t, int32(14), r2.IntervalDays) // round(4 * 2.65 * 1.3)
	require.InDelta(t, 2.65, r2.EaseFactor, 1e-9)

	r3 := s.Grade(r2.Snapshot, entity.RatingKnow)
	require.GreaterOrEqual(t, r3.IntervalDays, int32(48))
	require.InDelta(t, 2.80, r3.EaseFactor, 1e-9) // clamped at the ceiling
}

func TestLearningLadderScenario(t *testing.T) {
	s := newTestScheduler()

	r1 := s.Grade(Snapshot{State: entity.StateNew, EaseFactor: 2.5}, entity.RatingDontKnow)
	require.Equal(t, entity.StateLearning, r1.State)
	require.Equal(t, int32(0), r1.StepIndex)
	require.Equal(t, int32(1), *r1.RequeueMinutes)

	r2 := s.Grade(r1.Snapshot, entity.RatingKnow)
	require.Equal(t, entity.StateLearning, r2.State)
	require.Equal(t, int32(1), r2.StepIndex)
	require.Equal(t, int32(10), *r2.RequeueMinutes)

	r3 := s.Grade(r2.Snapshot, entity.RatingKnow)
	require.Equal(t, entity.StateReview, r3.State)
	require.Equal(t, int32(1), r3.IntervalDays)
	require.Nil(t, r3.RequeueMinutes)
}

func TestLapseScenario(t *testing.T) {
	s := newTestScheduler()

	r1 := s.Grade(Snapshot{State: entity.StateReview, IntervalDays: 30, Repetitions: 5, EaseFactor: 2.5}, entity.RatingDontKnow)
	require.Equal(t, entity.StateRelearning, r1.State)
	require.True(t, r1.Lapsed)
	require.Equal(t, int32(1), r1.Lapses)
	require.Equal(t, int32(0), r1.Repetitions)
	require.InDelta(t, 2.30, r1.EaseFactor, 1e-9)
	require.Equal(t, int32(10), *r1.RequeueMinutes)

	r2 := s.Grade(r1.Snapshot, entity.RatingKnow)
	require.Equal(t, entity.StateReview, r2.State)
	require.False(t, r2.Lapsed)
	require.Equal(t, int32(1), r2.IntervalDays)
}

// Totality sweep: every reachable input yields a legal state and a clamped
// ease factor, and only REVIEW -> RELEARNING moves the lapse counter.
func TestGradeTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(DefaultParams(), WithUniform(rng.Float64))
	params := DefaultParams()

	states := []entity.CardState{entity.StateNew, entity.StateLearning, entity.StateRelearning, entity.StateReview}
	for _, state := range states {
		for step := int32(0); step <= 3; step++ {
			for _, interval := range []int32{0, 1, 7, 365} {
				for _, ef := range []float64{0, 1.0, 1.3, 2.5, 2.8, 5.0} {
					for rating := entity.Rating(0); rating <= 4; rating++ {
						cur := Snapshot{State: state, StepIndex: step, Repetitions: step, IntervalDays: interval, EaseFactor: ef, Lapses: 2}
						got := s.Grade(cur, rating)

						require.Contains(t, states, got.State)
						require.GreaterOrEqual(t, got.EaseFactor, params.EaseMin)
						require.LessOrEqual(t, got.EaseFactor, params.EaseMax)
						require.GreaterOrEqual(t, got.StepIndex, int32(0))
						require.GreaterOrEqual(t, got.DaysUntilReview, int32(0))
						if got.State == entity.StateReview {
							require.GreaterOrEqual(t, got.IntervalDays, int32(1))
						} else {
							require.Zero(t, got.IntervalDays)
						}

						lapsed := state == entity.StateReview && rating == entity.RatingDontKnow
						if lapsed {
							require.Equal(t, cur.Lapses+1, got.Lapses)
							require.Zero(t, got.Repetitions)
						} else {
							require.Equal(t, cur.Lapses, got.Lapses)
						}
					}
				}
			}
		}
	}
}

// Know on a review card never regresses the interval, smear included.
func TestReviewKnowNeverRegresses(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New(DefaultParams(), WithUniform(rng.Float64))

	for i := 0; i < 2000; i++ {
		interval := int32(rng.Intn(400) + 1)
		ef := 1.3 + rng.Float64()*1.5
		cur := Snapshot{State: entity.StateReview, IntervalDays: interval, Repetitions: 3, EaseFactor: ef}

		for _, rating := range []entity.Rating{entity.RatingDoubt, entity.RatingKnow} {
			got := s.Grade(cur, rating)
			require.GreaterOrEqual(t, got.IntervalDays, interval+1,
				"interval=%d ef=%f rating=%d", interval, ef, rating)
		}
	}
}

func TestUnknownRatingTreatedAsKnow(t *testing.T) {
	s := newTestScheduler()
	want := s.Grade(Snapshot{State: entity.StateNew, EaseFactor: 2.5}, entity.RatingKnow)
	got := s.Grade(Snapshot{State: entity.StateNew, EaseFactor: 2.5}, entity.Rating(9))
	assert.Equal(t, want, got)
}

func TestSmearStaysWithinVariance(t *testing.T) {
	for _, u := range []float64{0, 0.25, 0.75, 0.999} {
		u := u
		s := New(DefaultParams(), WithUniform(func() float64 { return u }))
		got := s.smear(100)
		assert.GreaterOrEqual(t, got, int32(90))
		assert.LessOrEqual(t, got, int32(110))
	}
}

func ptr[T any](v T) *T { return &v }
