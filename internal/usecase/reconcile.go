package usecase

import "github.com/eslsoft/srsd/internal/entity"

// MasteredThresholdDays is the minimum review interval, on both directions,
// for a word to count as mastered.
const MasteredThresholdDays = 180

// WordStatusFor derives the coarse word status from the word's two cards.
// It is a pure function of the current card states; the grading path calls it
// after flushing its own writes so the graded card is visible. A nil card is
// treated as a card that was never graded.
func WordStatusFor(forward, reverse *entity.Card) entity.WordStatus {
	var blank entity.Card
	if forward == nil {
		forward = &blank
	}
	if reverse == nil {
		reverse = &blank
	}

	bothReview := forward.State == entity.StateReview && reverse.State == entity.StateReview
	if bothReview && minInterval(forward, reverse) >= MasteredThresholdDays {
		return entity.WordStatusMastered
	}
	if forward.Repetitions >= 1 && reverse.Repetitions >= 1 {
		return entity.WordStatusReview
	}
	if forward.Repetitions >= 1 || reverse.Repetitions >= 1 ||
		inLadder(forward.State) || inLadder(reverse.State) {
		return entity.WordStatusLearning
	}
	return entity.WordStatusNew
}

func inLadder(s entity.CardState) bool {
	return s == entity.StateLearning || s == entity.StateRelearning
}

func minInterval(a, b *entity.Card) int32 {
	if a.IntervalDays < b.IntervalDays {
		return a.IntervalDays
	}
	return b.IntervalDays
}
