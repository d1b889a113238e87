package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

type ChatbotService interface {
	Create(ctx context.Context, tenantID, name string, monthlyQueryLimit int) (*domain.Chatbot, error)
	Get(ctx context.Context, tenantID, chatbotID string) (*domain.Chatbot, error)
	List(ctx context.Context, tenantID string) ([]*domain.Chatbot, error)
	SetStatus(ctx context.Context, tenantID, chatbotID string, status domain.ChatbotStatus) (*domain.Chatbot, error)
	SetQueryLimit(ctx context.Context, tenantID, chatbotID string, limit int) (*domain.Chatbot, error)
}

type ChatbotHandler struct {
	chatbots ChatbotService
	answers  AnswerService
}

func NewChatbotHandler(chatbots ChatbotService, answers AnswerService) *ChatbotHandler {
	return &ChatbotHandler{chatbots: chatbots, answers: answers}
}

type CreateChatbotRequest struct {
	Name              string `json:"name" validate:"required,max=200"`
	MonthlyQueryLimit int    `json:"monthly_query_limit" validate:"gte=0"`
}

type UpdateChatbotStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active suspended"`
}

type UpdateQueryLimitRequest struct {
	MonthlyQueryLimit *int `json:"monthly_query_limit" validate:"required,gte=0"`
}

type ChatbotResponse struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenant_id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	MonthlyQueryLimit int    `json:"monthly_query_limit"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func chatbotToResponse(c *domain.Chatbot) *ChatbotResponse {
	return &ChatbotResponse{
		ID:                c.ID,
		TenantID:          c.TenantID,
		Name:              c.Name,
		Status:            string(c.Status),
		MonthlyQueryLimit: c.MonthlyQueryLimit,
		CreatedAt:         formatTime(c.CreatedAt),
		UpdatedAt:         formatTime(c.UpdatedAt),
	}
}

func (h *ChatbotHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req CreateChatbotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bot, err := h.chatbots.Create(r.Context(), tenantID, req.Name, req.MonthlyQueryLimit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chatbotToResponse(bot))
}

func (h *ChatbotHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	bots, err := h.chatbots.List(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*ChatbotResponse, 0, len(bots))
	for _, b := range bots {
		resp = append(resp, chatbotToResponse(b))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *ChatbotHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	bot, err := h.chatbots.Get(r.Context(), tenantID, chi.URLParam(r, "chatbotID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chatbotToResponse(bot))
}

func (h *ChatbotHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req UpdateChatbotStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bot, err := h.chatbots.SetStatus(r.Context(), tenantID, chi.URLParam(r, "chatbotID"), domain.ChatbotStatus(req.Status))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chatbotToResponse(bot))
}

func (h *ChatbotHandler) SetQueryLimit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req UpdateQueryLimitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bot, err := h.chatbots.SetQueryLimit(r.Context(), tenantID, chi.URLParam(r, "chatbotID"), *req.MonthlyQueryLimit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chatbotToResponse(bot))
}

// Preview answers as production would, without the activity check, so
// authors can try a draft chatbot. Previews count against the quota.
func (h *ChatbotHandler) Preview(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bot, err := h.chatbots.Get(r.Context(), tenantID, chi.URLParam(r, "chatbotID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out, err := h.answers.Answer(r.Context(), service.AnswerInput{
		ChatbotID: bot.ID,
		Query:     req.Query,
		Session:   domain.NoSession(),
		Mode:      domain.AnswerModePreview,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(out))
}
