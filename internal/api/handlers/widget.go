package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/api/middleware"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, input service.AnswerInput) (*service.AnswerOutput, error)
}

type EngagementService interface {
	RecordAction(ctx context.Context, input service.RecordActionInput) (*service.ActionOutcome, error)
	RecordBrowse(ctx context.Context, input service.RecordBrowseInput) (*service.BrowseOutcome, error)
}

type SessionService interface {
	Start(ctx context.Context, chatbotID string) (*service.StartSessionResult, error)
}

// WidgetHandler serves the end-user chat widget
type WidgetHandler struct {
	answers    AnswerService
	engagement EngagementService
	sessions   SessionService
}

func NewWidgetHandler(answers AnswerService, engagement EngagementService, sessions SessionService) *WidgetHandler {
	return &WidgetHandler{answers: answers, engagement: engagement, sessions: sessions}
}

type AskRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

type AnswerCandidateResponse struct {
	FAQID    string `json:"faq_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Layout   string `json:"layout"`
	MediaURL string `json:"media_url,omitempty"`
}

type AnswerResponse struct {
	Intro      string                     `json:"intro,omitempty"`
	Candidates []*AnswerCandidateResponse `json:"candidates"`
	EventID    string                     `json:"event_id,omitempty"`
	Degraded   []string                   `json:"degraded,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type BrowseRequest struct {
	FAQID string `json:"faq_id" validate:"required"`
}

type BrowseResponse struct {
	EventID  string   `json:"event_id,omitempty"`
	Degraded []string `json:"degraded,omitempty"`
}

type ActionRequest struct {
	FAQID  string `json:"faq_id" validate:"required"`
	Action string `json:"action" validate:"required,oneof=viewed not_viewed like dislike"`
}

type ActionResponse struct {
	EventID   string   `json:"event_id"`
	FAQID     string   `json:"faq_id"`
	Action    string   `json:"action"`
	UpdatedAt string   `json:"updated_at"`
	Degraded  []string `json:"degraded,omitempty"`
}

func answerToResponse(out *service.AnswerOutput) *AnswerResponse {
	resp := &AnswerResponse{
		Intro:      out.Intro,
		Candidates: make([]*AnswerCandidateResponse, 0, len(out.Candidates)),
		EventID:    out.EventID,
		Degraded:   stages(out.Absorbed),
	}
	for _, c := range out.Candidates {
		resp.Candidates = append(resp.Candidates, &AnswerCandidateResponse{
			FAQID:    c.FAQID,
			Question: c.Question,
			Answer:   c.Answer,
			Layout:   string(c.Layout),
			MediaURL: c.MediaURL,
		})
	}
	return resp
}

// stages names the absorbed failures without their causes
func stages(absorbed []service.AbsorbedFailure) []string {
	if len(absorbed) == 0 {
		return nil
	}
	out := make([]string, len(absorbed))
	for i, f := range absorbed {
		out[i] = string(f.Stage)
	}
	return out
}

func (h *WidgetHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Start(r.Context(), chi.URLParam(r, "chatbotID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &SessionResponse{
		SessionID: res.Session.ID,
		Token:     res.Token,
		ExpiresAt: formatTime(res.ExpiresAt),
	})
}

func (h *WidgetHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.answers.Answer(r.Context(), service.AnswerInput{
		ChatbotID: chi.URLParam(r, "chatbotID"),
		Query:     req.Query,
		Session:   middleware.GetSession(r.Context()),
		Mode:      domain.AnswerModeProduction,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(out))
}

func (h *WidgetHandler) Browse(w http.ResponseWriter, r *http.Request) {
	var req BrowseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.engagement.RecordBrowse(r.Context(), service.RecordBrowseInput{
		ChatbotID: chi.URLParam(r, "chatbotID"),
		FAQID:     req.FAQID,
		Session:   middleware.GetSession(r.Context()),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &BrowseResponse{EventID: out.EventID, Degraded: stages(out.Absorbed)})
}

func (h *WidgetHandler) RecordAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.engagement.RecordAction(r.Context(), service.RecordActionInput{
		EventID: chi.URLParam(r, "eventID"),
		FAQID:   req.FAQID,
		Action:  domain.ActionKind(req.Action),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ActionResponse{
		EventID:   out.Action.EventID,
		FAQID:     out.Action.FAQID,
		Action:    string(out.Action.Action),
		UpdatedAt: formatTime(out.Action.UpdatedAt),
		Degraded:  stages(out.Absorbed),
	})
}
