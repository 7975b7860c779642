package httpapi

import (
	"time"

	"github.com/eslsoft/srsd/internal/entity"
)

type scopeRequest struct {
	Kind    string  `json:"kind" binding:"required,oneof=all deck word_ids"`
	DeckID  int64   `json:"deck_id"`
	WordIDs []int64 `json:"word_ids"`
}

type createSessionRequest struct {
	Scope scopeRequest `json:"scope" binding:"required"`
	Limit int32        `json:"limit"`
}

type createSessionResponse struct {
	SessionKey   string          `json:"session_key"`
	Cards        []studyItemBody `json:"cards"`
	StudiedToday int32           `json:"studied_today"`
	TotalDue     int32           `json:"total_due"`
}

type pullRequest struct {
	Source         string  `json:"source" binding:"omitempty,oneof=auto deck"`
	DeckID         int64   `json:"deck_id"`
	ExcludeCardIDs []int64 `json:"exclude_card_ids"`
	ExtraStudy     bool    `json:"extra_study"`
	Limit          int32   `json:"limit"`
}

type pullResponse struct {
	Status string          `json:"status"`
	Items  []studyItemBody `json:"items"`
	Stats  statsBody       `json:"stats"`
}

type gradeRequest struct {
	CardID     int64  `json:"card_id" binding:"required"`
	Rating     *int32 `json:"rating"`
	Quality    *int32 `json:"quality"` // legacy 0..5 scale
	SessionKey string `json:"session_key"`
	DeckID     int64  `json:"deck_id"`
}

type gradeResponse struct {
	Success         bool       `json:"success"`
	CardID          int64      `json:"card_id"`
	State           string     `json:"state"`
	StepIndex       int32      `json:"step_index"`
	Repetitions     int32      `json:"repetitions"`
	IntervalDays    int32      `json:"interval"`
	EaseFactor      float64    `json:"ease_factor"`
	Lapses          int32      `json:"lapses"`
	NextReviewAt    *time.Time `json:"next_review,omitempty"`
	SessionAttempts int32      `json:"session_attempts"`
	RequeuePosition *int32     `json:"requeue_position"`
	RequeueMinutes  *int32     `json:"requeue_minutes"`
	IsBuried        bool       `json:"is_buried"`
	IsLeech         bool       `json:"is_leech"`
	LeechHint       string     `json:"leech_hint,omitempty"`
	WordStatus      string     `json:"word_status"`
}

type ensureCardsRequest struct {
	WordID     int64    `json:"word_id" binding:"required"`
	Directions []string `json:"directions" binding:"omitempty,dive,oneof=forward reverse"`
}

type ensureCardsResponse struct {
	CardIDs []int64 `json:"card_ids"`
}

type studyItemBody struct {
	CardID       int64      `json:"card_id"`
	WordID       int64      `json:"word_id"`
	Direction    string     `json:"direction"`
	State        string     `json:"state"`
	StepIndex    int32      `json:"step_index"`
	IntervalDays int32      `json:"interval"`
	EaseFactor   float64    `json:"ease_factor"`
	Lapses       int32      `json:"lapses"`
	NextReviewAt *time.Time `json:"next_review,omitempty"`
	IsLeech      bool       `json:"is_leech"`
	Forward      string     `json:"forward"`
	Reverse      string     `json:"reverse"`
	Example      string     `json:"example,omitempty"`
	AudioURL     string     `json:"audio_url,omitempty"`
	LeechHint    string     `json:"leech_hint,omitempty"`
}

type statsBody struct {
	NewToday       int32 `json:"new_today"`
	ReviewsToday   int32 `json:"reviews_today"`
	NewLimit       int32 `json:"new_limit"`
	ReviewLimit    int32 `json:"review_limit"`
	HasMoreNew     bool  `json:"has_more_new"`
	HasMoreReviews bool  `json:"has_more_reviews"`
}

func toScope(req scopeRequest) entity.SessionScope {
	return entity.SessionScope{
		Kind:    entity.ScopeKind(req.Kind),
		DeckID:  req.DeckID,
		WordIDs: req.WordIDs,
	}
}

func toStudyItems(items []entity.StudyItem) []studyItemBody {
	out := make([]studyItemBody, 0, len(items))
	for _, item := range items {
		out = append(out, studyItemBody{
			CardID:       item.Card.ID,
			WordID:       item.Word.ID,
			Direction:    string(item.Card.Direction),
			State:        string(item.Card.State),
			StepIndex:    item.Card.StepIndex,
			IntervalDays: item.Card.IntervalDays,
			EaseFactor:   item.Card.EaseFactor,
			Lapses:       item.Card.Lapses,
			NextReviewAt: item.Card.NextReviewAt,
			IsLeech:      item.Card.IsLeech,
			Forward:      item.Word.Forward,
			Reverse:      item.Word.Reverse,
			Example:      item.Word.Example,
			AudioURL:     item.Word.AudioURL,
			LeechHint:    item.LeechHint,
		})
	}
	return out
}

func toStatsBody(s entity.StudyStats) statsBody {
	return statsBody{
		NewToday:       s.NewToday,
		ReviewsToday:   s.ReviewsToday,
		NewLimit:       s.NewLimit,
		ReviewLimit:    s.ReviewLimit,
		HasMoreNew:     s.HasMoreNew,
		HasMoreReviews: s.HasMoreReviews,
	}
}

func toGradeResponse(res *entity.GradeResult) gradeResponse {
	return gradeResponse{
		Success:         true,
		CardID:          res.CardID,
		State:           string(res.State),
		StepIndex:       res.StepIndex,
		Repetitions:     res.Repetitions,
		IntervalDays:    res.IntervalDays,
		EaseFactor:      res.EaseFactor,
		Lapses:          res.Lapses,
		NextReviewAt:    res.NextReviewAt,
		SessionAttempts: res.SessionAttempts,
		RequeuePosition: res.RequeuePosition,
		RequeueMinutes:  res.RequeueMinutes,
		IsBuried:        res.IsBuried,
		IsLeech:         res.IsLeech,
		LeechHint:       res.LeechHint,
		WordStatus:      string(res.WordStatus),
	}
}

// resolveRating accepts either the native 1..3 rating or the legacy 0..5
// quality scale, native winning when both are present.
func resolveRating(req gradeRequest) (entity.Rating, bool) {
	if req.Rating != nil {
		return entity.Rating(*req.Rating), true
	}
	if req.Quality != nil {
		if *req.Quality < 0 || *req.Quality > 5 {
			return 0, false
		}
		return entity.MapLegacyRating(*req.Quality), true
	}
	return 0, false
}
