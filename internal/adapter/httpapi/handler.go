package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/usecase"
)

// StudyHandler exposes the scheduling core over HTTP.
type StudyHandler struct {
	uc     usecase.StudyUsecase
	logger logrus.FieldLogger
}

func NewStudyHandler(uc usecase.StudyUsecase, logger logrus.FieldLogger) *StudyHandler {
	return &StudyHandler{uc: uc, logger: logger}
}

// Register mounts the study routes on the given group. Every route requires
// an authenticated user id.
func (h *StudyHandler) Register(rg *gin.RouterGroup) {
	rg.Use(RequireUser())
	rg.POST("/sessions", h.CreateSession)
	rg.POST("/sessions/pull", h.Pull)
	rg.POST("/cards/grade", h.Grade)
	rg.POST("/cards/ensure", h.EnsureCards)
	rg.GET("/study/stats", h.Stats)
}

func (h *StudyHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	res, err := h.uc.CreateSession(c.Request.Context(), currentUser(c), toScope(req.Scope), req.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, createSessionResponse{
		SessionKey:   res.Session.Key,
		Cards:        toStudyItems(res.Items),
		StudiedToday: res.StudiedToday,
		TotalDue:     res.TotalDue,
	})
}

func (h *StudyHandler) Pull(c *gin.Context) {
	var req pullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_request"})
		return
	}
	if req.Source == "deck" && req.DeckID <= 0 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "deck source needs a deck_id", Kind: "invalid_request"})
		return
	}

	res, err := h.uc.Pull(c.Request.Context(), usecase.PullQuery{
		UserID:         currentUser(c),
		DeckID:         req.DeckID,
		ExcludeCardIDs: req.ExcludeCardIDs,
		ExtraStudy:     req.ExtraStudy,
		Limit:          req.Limit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, pullResponse{
		Status: string(res.Status),
		Items:  toStudyItems(res.Items),
		Stats:  toStatsBody(res.Stats),
	})
}

func (h *StudyHandler) Grade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_request"})
		return
	}
	rating, ok := resolveRating(req)
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody{Error: "rating required", Kind: "invalid_rating"})
		return
	}

	res, err := h.uc.Grade(c.Request.Context(), usecase.GradeCommand{
		UserID:     currentUser(c),
		CardID:     req.CardID,
		Rating:     rating,
		SessionKey: req.SessionKey,
		DeckID:     req.DeckID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toGradeResponse(res))
}

func (h *StudyHandler) EnsureCards(c *gin.Context) {
	var req ensureCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	cards, err := h.uc.EnsureCardsForWord(c.Request.Context(), currentUser(c), req.WordID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	ids := make([]int64, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	c.JSON(http.StatusOK, ensureCardsResponse{CardIDs: ids})
}

func (h *StudyHandler) Stats(c *gin.Context) {
	var deckID int64
	if raw := c.Query("deck_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid deck_id", Kind: "invalid_request"})
			return
		}
		deckID = parsed
	}

	stats, err := h.uc.Stats(c.Request.Context(), currentUser(c), deckID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStatsBody(stats))
}
