package entity

// UserSettings holds per-user study caps. The row doubles as the lock target
// that serializes concurrent new-card introductions for one user.
type UserSettings struct {
	UserID      int64
	NewLimit    int32
	ReviewLimit int32
}

// DeckSettings overrides the user-level caps for a single deck.
type DeckSettings struct {
	UserID      int64
	DeckID      int64
	NewLimit    int32
	ReviewLimit int32
}
