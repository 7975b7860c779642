package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eslsoft/srsd/internal/entity"
	"github.com/eslsoft/srsd/internal/repository"
)

// memDB is an in-memory stand-in for the relational store. WithinTx grabs one
// big lock, which models the serialization the settings-row lock provides in
// production closely enough for the concurrency scenarios.
type memDB struct {
	mu        sync.Mutex
	cardSeq   int64
	uwSeq     int64
	cards     map[int64]*entity.Card
	words     map[int64]*entity.Word
	userWords map[int64]*entity.UserWord
	settings  map[int64]*entity.UserSettings
	deckCaps  map[[2]int64]*entity.DeckSettings
	logs      []repository.ReviewLog
}

func newMemDB() *memDB {
	return &memDB{
		cards:     make(map[int64]*entity.Card),
		words:     make(map[int64]*entity.Word),
		userWords: make(map[int64]*entity.UserWord),
		settings:  make(map[int64]*entity.UserSettings),
		deckCaps:  make(map[[2]int64]*entity.DeckSettings),
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(ctx)
}

func (db *memDB) addWord(w entity.Word) entity.Word {
	db.words[w.ID] = &w
	return w
}

func (db *memDB) addCard(c entity.Card) *entity.Card {
	if c.ID == 0 {
		db.cardSeq++
		c.ID = db.cardSeq
	} else if c.ID > db.cardSeq {
		db.cardSeq = c.ID
	}
	db.cards[c.ID] = &c
	return &c
}

func (db *memDB) addUserWord(uw entity.UserWord) *entity.UserWord {
	if uw.ID == 0 {
		db.uwSeq++
		uw.ID = db.uwSeq
	} else if uw.ID > db.uwSeq {
		db.uwSeq = uw.ID
	}
	db.userWords[uw.ID] = &uw
	return &uw
}

// --- CardRepository ---

func (db *memDB) GetByID(ctx context.Context, id int64) (*entity.Card, error) {
	c, ok := db.cards[id]
	if !ok {
		return nil, entity.ErrCardNotFound
	}
	return cloneCard(c), nil
}

func (db *memDB) GetForUpdate(ctx context.Context, id int64) (*entity.Card, error) {
	return db.GetByID(ctx, id)
}

func (db *memDB) GetSibling(ctx context.Context, userWordID, excludeCardID int64) (*entity.Card, error) {
	for _, c := range db.cards {
		if c.UserWordID == userWordID && c.ID != excludeCardID {
			return cloneCard(c), nil
		}
	}
	return nil, nil
}

func (db *memDB) Create(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	for _, c := range db.cards {
		if c.UserWordID == card.UserWordID && c.Direction == card.Direction {
			return cloneCard(c), nil
		}
	}
	return cloneCard(db.addCard(*card)), nil
}

func (db *memDB) Update(ctx context.Context, card *entity.Card) error {
	if _, ok := db.cards[card.ID]; !ok {
		return entity.ErrCardNotFound
	}
	db.cards[card.ID] = cloneCard(card)
	return nil
}

func (db *memDB) ListByUserWord(ctx context.Context, userWordID int64) ([]entity.Card, error) {
	var out []entity.Card
	for _, c := range db.cards {
		if c.UserWordID == userWordID {
			out = append(out, *cloneCard(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *memDB) matchesDue(c *entity.Card, q repository.DueQuery) bool {
	if c.UserID != q.UserID {
		return false
	}
	if q.DeckID > 0 {
		w, ok := db.words[c.WordID]
		if !ok || w.DeckID != q.DeckID {
			return false
		}
	}
	if len(q.WordIDs) > 0 && !containsI64(q.WordIDs, c.WordID) {
		return false
	}
	inStates := false
	for _, s := range q.States {
		if c.State == s {
			inStates = true
			break
		}
	}
	if !inStates {
		return false
	}
	if c.State == entity.StateNew {
		if c.NextReviewAt != nil && c.NextReviewAt.After(q.DueBefore) {
			return false
		}
	} else {
		if c.NextReviewAt == nil || c.NextReviewAt.After(q.DueBefore) {
			return false
		}
	}
	if c.Buried(q.Now) {
		return false
	}
	if containsI64(q.ExcludeIDs, c.ID) {
		return false
	}
	return true
}

func (db *memDB) dueCards(q repository.DueQuery) []*entity.Card {
	var due []*entity.Card
	for _, c := range db.cards {
		if db.matchesDue(c, q) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].NextReviewAt, due[j].NextReviewAt
		switch {
		case a == nil && b == nil:
			return due[i].ID < due[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		case a.Equal(*b):
			return due[i].ID < due[j].ID
		default:
			return a.Before(*b)
		}
	})
	return due
}

func (db *memDB) ListDue(ctx context.Context, q repository.DueQuery) ([]entity.StudyItem, error) {
	due := db.dueCards(q)
	if q.Limit > 0 && int32(len(due)) > q.Limit {
		due = due[:q.Limit]
	}
	items := make([]entity.StudyItem, 0, len(due))
	for _, c := range due {
		item := entity.StudyItem{Card: *cloneCard(c)}
		if w, ok := db.words[c.WordID]; ok {
			item.Word = *w
		}
		items = append(items, item)
	}
	return items, nil
}

func (db *memDB) ExistsDue(ctx context.Context, q repository.DueQuery) (bool, error) {
	return len(db.dueCards(q)) > 0, nil
}

func (db *memDB) CountDue(ctx context.Context, q repository.DueQuery) (int32, error) {
	return int32(len(db.dueCards(q))), nil
}

func (db *memDB) CountNewSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	var n int32
	for _, c := range db.cards {
		if c.UserID != userID || c.FirstReviewedAt == nil || c.FirstReviewedAt.Before(dayStart) {
			continue
		}
		if deckID > 0 {
			w, ok := db.words[c.WordID]
			if !ok || w.DeckID != deckID {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (db *memDB) CountReviewsSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	var n int32
	for _, c := range db.cards {
		if c.UserID != userID || c.LastReviewedAt == nil || c.LastReviewedAt.Before(dayStart) {
			continue
		}
		if c.FirstReviewedAt == nil || !c.FirstReviewedAt.Before(dayStart) {
			continue
		}
		if deckID > 0 {
			w, ok := db.words[c.WordID]
			if !ok || w.DeckID != deckID {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (db *memDB) CountReviewBacklog(ctx context.Context, userID int64, now time.Time) (int32, error) {
	var n int32
	for _, c := range db.cards {
		if c.UserID == userID && c.State == entity.StateReview &&
			c.NextReviewAt != nil && !c.NextReviewAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (db *memDB) ResetSessionAttempts(ctx context.Context, userID int64, scope entity.SessionScope) error {
	for _, c := range db.cards {
		if c.UserID != userID {
			continue
		}
		if scope.Kind == entity.ScopeDeck {
			w, ok := db.words[c.WordID]
			if !ok || w.DeckID != scope.DeckID {
				continue
			}
		}
		if scope.Kind == entity.ScopeWordIDs && !containsI64(scope.WordIDs, c.WordID) {
			continue
		}
		c.SessionAttempts = 0
	}
	return nil
}

func (db *memDB) ClearExpiredBurials(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, c := range db.cards {
		if c.BuriedUntil != nil && !c.BuriedUntil.After(now) {
			c.BuriedUntil = nil
			n++
		}
	}
	return n, nil
}

// --- WordRepository ---

func (db *memDB) GetWordByID(ctx context.Context, id int64) (*entity.Word, error) {
	w, ok := db.words[id]
	if !ok {
		return nil, nil
	}
	clone := *w
	return &clone, nil
}

func (db *memDB) ListFresh(ctx context.Context, q repository.FreshWordQuery) ([]entity.Word, error) {
	started := make(map[int64]bool)
	for _, uw := range db.userWords {
		if uw.UserID == q.UserID {
			started[uw.WordID] = true
		}
	}
	var fresh []entity.Word
	seenBase := make(map[int64]bool)
	var all []*entity.Word
	for _, w := range db.words {
		all = append(all, w)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].FrequencyRank != all[j].FrequencyRank {
			return all[i].FrequencyRank < all[j].FrequencyRank
		}
		if all[i].Level != all[j].Level {
			return all[i].Level < all[j].Level
		}
		return all[i].ID < all[j].ID
	})
	for _, w := range all {
		if started[w.ID] {
			continue
		}
		if q.DeckID > 0 && w.DeckID != q.DeckID {
			continue
		}
		base := w.BaseWordID
		if base == 0 {
			base = w.ID
		}
		if seenBase[base] {
			continue
		}
		seenBase[base] = true
		fresh = append(fresh, *w)
		if q.Limit > 0 && int32(len(fresh)) >= q.Limit {
			break
		}
	}
	return fresh, nil
}

func (db *memDB) ExistsFresh(ctx context.Context, userID, deckID int64) (bool, error) {
	fresh, _ := db.ListFresh(context.Background(), repository.FreshWordQuery{UserID: userID, DeckID: deckID})
	return len(fresh) > 0, nil
}

// --- UserWordRepository ---

func (db *memDB) GetUserWordByID(ctx context.Context, userID, id int64) (*entity.UserWord, error) {
	uw, ok := db.userWords[id]
	if !ok || uw.UserID != userID || uw.DeletedAt != nil {
		return nil, entity.ErrUserWordNotFound
	}
	clone := *uw
	return &clone, nil
}

func (db *memDB) FindByWord(ctx context.Context, userID, wordID int64) (*entity.UserWord, error) {
	for _, uw := range db.userWords {
		if uw.UserID == userID && uw.WordID == wordID && uw.DeletedAt == nil {
			clone := *uw
			return &clone, nil
		}
	}
	return nil, nil
}

func (db *memDB) CreateUserWord(ctx context.Context, userWord *entity.UserWord) (*entity.UserWord, error) {
	// The live-rows unique index only rejects a second undeleted pair.
	if existing, _ := db.FindByWord(ctx, userWord.UserID, userWord.WordID); existing != nil {
		return nil, entity.ErrDuplicateUserWord
	}
	clone := *db.addUserWord(*userWord)
	return &clone, nil
}

func (db *memDB) UpdateStatus(ctx context.Context, id int64, status entity.WordStatus) error {
	uw, ok := db.userWords[id]
	if !ok {
		return entity.ErrUserWordNotFound
	}
	uw.Status = status
	return nil
}

// --- SettingsRepository ---

func (db *memDB) Get(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	s, ok := db.settings[userID]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (db *memDB) GetSettingsForUpdate(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	return db.Get(ctx, userID)
}

func (db *memDB) GetDeck(ctx context.Context, userID, deckID int64) (*entity.DeckSettings, error) {
	s, ok := db.deckCaps[[2]int64{userID, deckID}]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

// --- ReviewLogRepository ---

func (db *memDB) Append(ctx context.Context, log *repository.ReviewLog) error {
	entry := *log
	entry.ID = int64(len(db.logs) + 1)
	db.logs = append(db.logs, entry)
	return nil
}

func (db *memDB) AccuracySince(ctx context.Context, userID int64, since time.Time) (repository.Accuracy, error) {
	var acc repository.Accuracy
	for _, l := range db.logs {
		if l.UserID != userID || l.ReviewedAt.Before(since) {
			continue
		}
		acc.Total++
		if l.Rating == entity.RatingKnow {
			acc.Correct++
		}
	}
	return acc, nil
}

func cloneCard(c *entity.Card) *entity.Card {
	clone := *c
	return &clone
}

func containsI64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// Interface views over memDB; the repository interfaces share method names so
// each gets its own receiver.

type memCards struct{ db *memDB }

func (r memCards) GetByID(ctx context.Context, id int64) (*entity.Card, error) {
	return r.db.GetByID(ctx, id)
}
func (r memCards) GetForUpdate(ctx context.Context, id int64) (*entity.Card, error) {
	return r.db.GetForUpdate(ctx, id)
}
func (r memCards) GetSibling(ctx context.Context, userWordID, excludeCardID int64) (*entity.Card, error) {
	return r.db.GetSibling(ctx, userWordID, excludeCardID)
}
func (r memCards) Create(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	return r.db.Create(ctx, card)
}
func (r memCards) Update(ctx context.Context, card *entity.Card) error {
	return r.db.Update(ctx, card)
}
func (r memCards) ListByUserWord(ctx context.Context, userWordID int64) ([]entity.Card, error) {
	return r.db.ListByUserWord(ctx, userWordID)
}
func (r memCards) ListDue(ctx context.Context, q repository.DueQuery) ([]entity.StudyItem, error) {
	return r.db.ListDue(ctx, q)
}
func (r memCards) ExistsDue(ctx context.Context, q repository.DueQuery) (bool, error) {
	return r.db.ExistsDue(ctx, q)
}
func (r memCards) CountDue(ctx context.Context, q repository.DueQuery) (int32, error) {
	return r.db.CountDue(ctx, q)
}
func (r memCards) CountNewSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	return r.db.CountNewSince(ctx, userID, deckID, dayStart)
}
func (r memCards) CountReviewsSince(ctx context.Context, userID, deckID int64, dayStart time.Time) (int32, error) {
	return r.db.CountReviewsSince(ctx, userID, deckID, dayStart)
}
func (r memCards) CountReviewBacklog(ctx context.Context, userID int64, now time.Time) (int32, error) {
	return r.db.CountReviewBacklog(ctx, userID, now)
}
func (r memCards) ResetSessionAttempts(ctx context.Context, userID int64, scope entity.SessionScope) error {
	return r.db.ResetSessionAttempts(ctx, userID, scope)
}
func (r memCards) ClearExpiredBurials(ctx context.Context, now time.Time) (int64, error) {
	return r.db.ClearExpiredBurials(ctx, now)
}

type memWords struct{ db *memDB }

func (r memWords) GetByID(ctx context.Context, id int64) (*entity.Word, error) {
	return r.db.GetWordByID(ctx, id)
}
func (r memWords) ListFresh(ctx context.Context, q repository.FreshWordQuery) ([]entity.Word, error) {
	return r.db.ListFresh(ctx, q)
}
func (r memWords) ExistsFresh(ctx context.Context, userID, deckID int64) (bool, error) {
	return r.db.ExistsFresh(ctx, userID, deckID)
}

type memUserWords struct{ db *memDB }

func (r memUserWords) GetByID(ctx context.Context, userID, id int64) (*entity.UserWord, error) {
	return r.db.GetUserWordByID(ctx, userID, id)
}
func (r memUserWords) FindByWord(ctx context.Context, userID, wordID int64) (*entity.UserWord, error) {
	return r.db.FindByWord(ctx, userID, wordID)
}
func (r memUserWords) Create(ctx context.Context, userWord *entity.UserWord) (*entity.UserWord, error) {
	return r.db.CreateUserWord(ctx, userWord)
}
func (r memUserWords) UpdateStatus(ctx context.Context, id int64, status entity.WordStatus) error {
	return r.db.UpdateStatus(ctx, id, status)
}

type memSettings struct{ db *memDB }

func (r memSettings) Get(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	return r.db.Get(ctx, userID)
}
func (r memSettings) GetForUpdate(ctx context.Context, userID int64) (*entity.UserSettings, error) {
	return r.db.GetSettingsForUpdate(ctx, userID)
}
func (r memSettings) GetDeck(ctx context.Context, userID, deckID int64) (*entity.DeckSettings, error) {
	return r.db.GetDeck(ctx, userID, deckID)
}

type memLogs struct{ db *memDB }

func (r memLogs) Append(ctx context.Context, log *repository.ReviewLog) error {
	return r.db.Append(ctx, log)
}
func (r memLogs) AccuracySince(ctx context.Context, userID int64, since time.Time) (repository.Accuracy, error) {
	return r.db.AccuracySince(ctx, userID, since)
}
