package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ARedaUni/teloshousemeet/internal/api"
	"github.com/ARedaUni/teloshousemeet/internal/matching"
)

// summaryMatcher matches a meeting summary against calendar events
type summaryMatcher interface {
	MatchSummary(ctx context.Context, summary string, referenceTime time.Time) (*matching.MatchResult, error)
}

// MatchHandler handles ad-hoc summary matching requests
type MatchHandler struct {
	matcher summaryMatcher
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matcher summaryMatcher) *MatchHandler {
	return &MatchHandler{matcher: matcher}
}

// MatchRequest is the request body for matching a summary
type MatchRequest struct {
	Summary       string     `json:"summary" binding:"required"`
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// MatchedEventResponse describes the event a summary matched to
type MatchedEventResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Start          string `json:"start"`
	End            string `json:"end,omitempty"`
	ConferenceLink string `json:"conference_link,omitempty"`
}

// MatchResponse is the response for a match request
type MatchResponse struct {
	Matched bool                  `json:"matched"`
	Event   *MatchedEventResponse `json:"event,omitempty"`
	Score   float64               `json:"score"`
	Method  string                `json:"method"`
}

// Match matches a meeting summary against calendar events near the reference time
func (h *MatchHandler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	referenceTime := time.Now()
	if req.ReferenceTime != nil {
		referenceTime = *req.ReferenceTime
	}

	result, err := h.matcher.MatchSummary(c.Request.Context(), req.Summary, referenceTime)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to match summary", err.Error())
		return
	}

	resp := MatchResponse{
		Matched: result.Matched(),
		Score:   result.Score,
		Method:  string(result.Method),
	}
	if result.Matched() {
		resp.Event = &MatchedEventResponse{
			ID:             result.Event.ID,
			Title:          result.Event.Title,
			Start:          result.Event.Start.Format(time.RFC3339),
			ConferenceLink: result.Event.ConferenceLink,
		}
		if !result.Event.End.IsZero() {
			resp.Event.End = result.Event.End.Format(time.RFC3339)
		}
	}

	api.SendSuccess(c, http.StatusOK, resp, nil)
}
