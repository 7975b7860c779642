// Package scheduler implements the pure rating/state algebra of the
// spaced-repetition core. Grade never performs I/O and never fails; callers
// persist the returned snapshot and derive timestamps from it.
package scheduler

import (
	"math"
	"math/rand"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
)

// Snapshot is the scheduling slice of a card: the fields the algebra reads
// and rewrites.
type Snapshot struct {
	State        entity.CardState
	StepIndex    int32
	Repetitions  int32
	IntervalDays int32
	EaseFactor   float64
	Lapses       int32
}

// Result is the outcome of one grading step. DaysUntilReview is zero while
// the card stays on a step ladder; RequeueMinutes is the ladder delay and is
// nil once the card (re-)enters review.
type Result struct {
	Snapshot
	DaysUntilReview int32
	RequeueMinutes  *int32
	Lapsed          bool // true exactly when this step was a REVIEW -> RELEARNING transition
}

// Scheduler applies the algebra. The uniform source is injectable so tests
// can pin the interval smear; a nil source seeds from the wall clock.
type Scheduler struct {
	params  Params
	uniform func() float64
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithUniform replaces the variance source with fn, which must return values
// in [0, 1).
func WithUniform(fn func() float64) Option {
	return func(s *Scheduler) { s.uniform = fn }
}

// New builds a Scheduler from params.
func New(params Params, opts ...Option) *Scheduler {
	s := &Scheduler{params: params.normalize()}
	for _, opt := range opts {
		opt(s)
	}
	if s.uniform == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		s.uniform = rng.Float64
	}
	return s
}

// Params returns the tuning the scheduler was built with.
func (s *Scheduler) Params() Params { return s.params }

// Grade computes the next schedule for a card. It is total: unknown ratings
// are treated as Know, and the resulting ease factor is always inside
// [EaseMin, EaseMax].
func (s *Scheduler) Grade(cur Snapshot, rating entity.Rating) Result {
	if !rating.Valid() {
		rating = entity.RatingKnow
	}

	switch cur.State {
	case entity.StateNew:
		return s.gradeNew(cur, rating)
	case entity.StateLearning:
		return s.gradeSteps(cur, rating, s.params.LearningStepsMinutes, entity.StateLearning, s.params.GraduatingIntervalDays)
	case entity.StateRelearning:
		return s.gradeSteps(cur, rating, s.params.RelearningStepsMinutes, entity.StateRelearning, s.params.LapseMinIntervalDays)
	case entity.StateReview:
		return s.gradeReview(cur, rating)
	default:
		// Unknown stored state: restart the card from scratch.
		cur.State = entity.StateNew
		return s.gradeNew(cur, rating)
	}
}

func (s *Scheduler) gradeNew(cur Snapshot, rating entity.Rating) Result {
	next := cur
	next.EaseFactor = s.clampEase(cur.EaseFactor)
	next.Repetitions = cur.Repetitions + 1

	steps := s.params.LearningStepsMinutes
	switch rating {
	case entity.RatingDontKnow:
		next.State = entity.StateLearning
		next.StepIndex = 0
		next.IntervalDays = 0
		return s.stepResult(next, steps[0])
	case entity.RatingDoubt:
		next.State = entity.StateLearning
		next.StepIndex = minInt32(1, int32(len(steps))-1)
		next.IntervalDays = 0
		return s.stepResult(next, steps[next.StepIndex])
	default: // Know skips the learning ladder entirely.
		next.State = entity.StateReview
		next.StepIndex = 0
		next.IntervalDays = s.smear(s.params.EasyIntervalDays)
		return s.reviewResult(next)
	}
}

func (s *Scheduler) gradeSteps(cur Snapshot, rating entity.Rating, steps []int32, state entity.CardState, graduateDays int32) Result {
	next := cur
	next.State = state
	next.EaseFactor = s.clampEase(cur.EaseFactor)
	next.Repetitions = cur.Repetitions + 1
	next.IntervalDays = 0

	last := int32(len(steps)) - 1
	step := clampInt32(cur.StepIndex, 0, last)

	switch rating {
	case entity.RatingDontKnow:
		next.StepIndex = 0
		return s.stepResult(next, steps[0])
	case entity.RatingDoubt:
		next.StepIndex = step
		return s.stepResult(next, steps[step])
	default:
		if step < last {
			next.StepIndex = step + 1
			return s.stepResult(next, steps[step+1])
		}
		next.State = entity.StateReview
		next.StepIndex = 0
		next.IntervalDays = s.smear(graduateDays)
		return s.reviewResult(next)
	}
}

func (s *Scheduler) gradeReview(cur Snapshot, rating entity.Rating) Result {
	next := cur
	next.StepIndex = 0

	switch rating {
	case entity.RatingDontKnow:
		next.State = entity.StateRelearning
		next.EaseFactor = s.clampEase(cur.EaseFactor + s.params.EaseLapseDelta)
		next.Lapses = cur.Lapses + 1
		next.Repetitions = 0
		next.IntervalDays = 0
		res := s.stepResult(next, s.params.RelearningStepsMinutes[0])
		res.Lapsed = true
		return res
	case entity.RatingDoubt:
		next.State = entity.StateReview
		next.EaseFactor = s.clampEase(cur.EaseFactor + s.params.EaseDoubtDelta)
		next.Repetitions = cur.Repetitions + 1
		raw := math.Round(float64(cur.IntervalDays) * s.params.DoubtIntervalMultiplier)
		base := maxInt32(cur.IntervalDays+1, int32(raw))
		// The smear must never undo the old+1 floor.
		next.IntervalDays = maxInt32(cur.IntervalDays+1, s.smear(base))
		return s.reviewResult(next)
	default:
		next.State = entity.StateReview
		next.EaseFactor = s.clampEase(cur.EaseFactor + s.params.EaseKnowDelta)
		next.Repetitions = cur.Repetitions + 1
		raw := math.Round(float64(cur.IntervalDays) * next.EaseFactor * s.params.KnowIntervalBonus)
		base := maxInt32(cur.IntervalDays+1, int32(raw))
		next.IntervalDays = maxInt32(cur.IntervalDays+1, s.smear(base))
		return s.reviewResult(next)
	}
}

func (s *Scheduler) stepResult(next Snapshot, minutes int32) Result {
	m := minutes
	return Result{Snapshot: next, DaysUntilReview: 0, RequeueMinutes: &m}
}

func (s *Scheduler) reviewResult(next Snapshot) Result {
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	return Result{Snapshot: next, DaysUntilReview: next.IntervalDays}
}

// smear applies the uniform ±variance to a day interval and keeps it >= 1.
func (s *Scheduler) smear(days int32) int32 {
	if days <= 0 {
		return 0
	}
	v := s.params.IntervalVariance
	factor := 1 - v + 2*v*s.uniform()
	smeared := int32(math.Round(float64(days) * factor))
	if smeared < 1 {
		smeared = 1
	}
	return smeared
}

func (s *Scheduler) clampEase(ef float64) float64 {
	if ef == 0 {
		ef = 2.5
	}
	if ef < s.params.EaseMin {
		return s.params.EaseMin
	}
	if ef > s.params.EaseMax {
		return s.params.EaseMax
	}
	return ef
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
