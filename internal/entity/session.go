package entity

import "time"

// ScopeKind selects which pool of cards a session draws from.
type ScopeKind string

const (
	ScopeAll     ScopeKind = "all"
	ScopeDeck    ScopeKind = "deck"
	ScopeWordIDs ScopeKind = "word_ids"
)

// SessionScope narrows a session to a deck or an explicit word set.
type SessionScope struct {
	Kind    ScopeKind
	DeckID  int64
	WordIDs []int64
}

// Session is the short-lived handle returned at session creation. The server
// keeps no authoritative queue; the client owns ordering and the key only
// ties grade ticks back to one sitting.
type Session struct {
	Key       string
	UserID    int64
	Scope     SessionScope
	StartedAt time.Time
}

// StudyItem is one queue entry handed to the client: a card decorated with
// the word content needed to render it.
type StudyItem struct {
	Card      Card
	Word      Word
	LeechHint string
}

// StudyStats is the accounting block attached to selector responses.
type StudyStats struct {
	NewToday       int32
	ReviewsToday   int32
	NewLimit       int32
	ReviewLimit    int32
	HasMoreNew     bool
	HasMoreReviews bool
}
