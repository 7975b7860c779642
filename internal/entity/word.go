package entity

import "time"

// Word is a dictionary entry as the scheduling core sees it: two display
// strings plus the metadata the fresh-word selector orders by. Immutable here;
// content ingestion lives elsewhere.
type Word struct {
	ID            int64
	DeckID        int64 // 0 when the word belongs to no deck
	Forward       string
	Reverse       string
	Example       string
	AudioURL      string
	FrequencyRank int32
	Level         string // CEFR level, A1..C2
	BaseWordID    int64  // lemma group; inflections share one base word
	CreatedAt     time.Time
}
