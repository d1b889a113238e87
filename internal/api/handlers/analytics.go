package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

type AnalyticsService interface {
	Stats(ctx context.Context, tenantID, chatbotID string, window domain.TimeWindow) (*domain.EventStats, error)
	ListEvents(ctx context.Context, input service.ListEventsInput) (*service.EventPage, error)
	ListActions(ctx context.Context, tenantID, eventID string) ([]*domain.QueryAction, error)
	IgnoreQuery(ctx context.Context, tenantID, chatbotID, query string, ignored bool) (int64, error)
	DeleteEvent(ctx context.Context, tenantID, eventID string) error
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

type StatsResponse struct {
	Total          int64                     `json:"total"`
	IgnoredCount   int64                     `json:"ignored_count"`
	AvgResultCount float64                   `json:"avg_result_count"`
	AvgReadCount   float64                   `json:"avg_read_count"`
	Feedback       map[string]int64          `json:"feedback"`
	TopCandidates  []*CandidateHitsResponse  `json:"top_candidates"`
	ZeroResults    []*QueryFrequencyResponse `json:"zero_results"`
}

type CandidateHitsResponse struct {
	FAQID    string `json:"faq_id"`
	Question string `json:"question"`
	Views    int64  `json:"views"`
}

type QueryFrequencyResponse struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type EventResponse struct {
	ID          string `json:"id"`
	ChatbotID   string `json:"chatbot_id"`
	SessionID   string `json:"session_id,omitempty"`
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	ReadCount   int    `json:"read_count"`
	Ignored     bool   `json:"ignored"`
	CreatedAt   string `json:"created_at"`
}

type EventListResponse struct {
	Items   []*EventResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

type QueryActionResponse struct {
	EventID   string `json:"event_id"`
	FAQID     string `json:"faq_id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type IgnoreQueryRequest struct {
	Query   string `json:"query" validate:"required"`
	Ignored *bool  `json:"ignored" validate:"required"`
}

type IgnoreQueryResponse struct {
	Affected int64 `json:"affected"`
}

func statsToResponse(s *domain.EventStats) *StatsResponse {
	resp := &StatsResponse{
		Total:          s.Total,
		IgnoredCount:   s.IgnoredCount,
		AvgResultCount: s.AvgResultCount,
		AvgReadCount:   s.AvgReadCount,
		Feedback:       make(map[string]int64, len(s.Feedback)),
		TopCandidates:  make([]*CandidateHitsResponse, 0, len(s.TopCandidates)),
		ZeroResults:    make([]*QueryFrequencyResponse, 0, len(s.ZeroResults)),
	}
	for kind, n := range s.Feedback {
		resp.Feedback[string(kind)] = n
	}
	for _, c := range s.TopCandidates {
		resp.TopCandidates = append(resp.TopCandidates, &CandidateHitsResponse{FAQID: c.FAQID, Question: c.Question, Views: c.Views})
	}
	for _, q := range s.ZeroResults {
		resp.ZeroResults = append(resp.ZeroResults, &QueryFrequencyResponse{Query: q.Query, Count: q.Count})
	}
	return resp
}

func eventToResponse(e *domain.QueryEvent) *EventResponse {
	resp := &EventResponse{
		ID:          e.ID,
		ChatbotID:   e.ChatbotID,
		Query:       e.Query,
		ResultCount: e.ResultCount,
		ReadCount:   e.ReadCount,
		Ignored:     e.Ignored,
		CreatedAt:   formatTime(e.CreatedAt),
	}
	if e.SessionID != nil {
		resp.SessionID = *e.SessionID
	}
	return resp
}

func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), tenantID, chi.URLParam(r, "chatbotID"), window)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, statsToResponse(stats))
}

// ListEvents accepts from, to, session_id, ignored, zero_results, q, cursor
// and limit query parameters.
func (h *AnalyticsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	q := r.URL.Query()
	filter := service.EventFilter{
		ChatbotID:     chi.URLParam(r, "chatbotID"),
		Window:        window,
		SessionID:     q.Get("session_id"),
		QueryContains: strings.TrimSpace(q.Get("q")),
	}

	if raw := q.Get("ignored"); raw != "" {
		ignored, err := strconv.ParseBool(raw)
		if err != nil {
			api.ErrorWithCode(w, http.StatusBadRequest, "validation_error", "ignored must be a boolean")
			return
		}
		filter.Ignored = &ignored
	}
	if raw := q.Get("zero_results"); raw != "" {
		zero, err := strconv.ParseBool(raw)
		if err != nil {
			api.ErrorWithCode(w, http.StatusBadRequest, "validation_error", "zero_results must be a boolean")
			return
		}
		filter.ZeroResultsOnly = zero
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			api.ErrorWithCode(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
	}

	page, err := h.svc.ListEvents(r.Context(), service.ListEventsInput{
		TenantID: tenantID,
		Filter:   filter,
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &EventListResponse{
		Items:   make([]*EventResponse, 0, len(page.Items)),
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}
	for _, e := range page.Items {
		resp.Items = append(resp.Items, eventToResponse(e))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *AnalyticsHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	actions, err := h.svc.ListActions(r.Context(), tenantID, chi.URLParam(r, "eventID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*QueryActionResponse, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, &QueryActionResponse{
			EventID:   a.EventID,
			FAQID:     a.FAQID,
			Action:    string(a.Action),
			CreatedAt: formatTime(a.CreatedAt),
			UpdatedAt: formatTime(a.UpdatedAt),
		})
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *AnalyticsHandler) IgnoreQuery(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req IgnoreQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	affected, err := h.svc.IgnoreQuery(r.Context(), tenantID, chi.URLParam(r, "chatbotID"), req.Query, *req.Ignored)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &IgnoreQueryResponse{Affected: affected})
}

func (h *AnalyticsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), tenantID, chi.URLParam(r, "eventID")); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
