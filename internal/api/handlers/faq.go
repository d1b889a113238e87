package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

type FAQService interface {
	Create(ctx context.Context, input service.CreateFAQInput) (*domain.FAQ, error)
	List(ctx context.Context, tenantID, chatbotID string) ([]*domain.FAQ, error)
}

type MediaService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
}

type FAQHandler struct {
	faqs  FAQService
	media MediaService
}

// NewFAQHandler creates the FAQ authoring handler. media may be nil when no
// object storage is configured.
func NewFAQHandler(faqs FAQService, media MediaService) *FAQHandler {
	return &FAQHandler{faqs: faqs, media: media}
}

type CreateFAQRequest struct {
	Question string `json:"question" validate:"required,max=1000"`
	Answer   string `json:"answer" validate:"required"`
	Layout   string `json:"layout" validate:"omitempty,oneof=text image video link"`
	MediaKey string `json:"media_key"`
}

type FAQResponse struct {
	ID        string `json:"id"`
	ChatbotID string `json:"chatbot_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Layout    string `json:"layout"`
	MediaKey  string `json:"media_key,omitempty"`
	HitCount  int64  `json:"hit_count"`
	CreatedAt string `json:"created_at"`
}

type MediaUploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type MediaUploadResponse struct {
	MediaKey  string `json:"media_key"`
	UploadURL string `json:"upload_url"`
}

func faqToResponse(f *domain.FAQ) *FAQResponse {
	return &FAQResponse{
		ID:        f.ID,
		ChatbotID: f.ChatbotID,
		Question:  f.Question,
		Answer:    f.Answer,
		Layout:    string(f.Layout),
		MediaKey:  f.MediaKey,
		HitCount:  f.HitCount,
		CreatedAt: formatTime(f.CreatedAt),
	}
}

func (h *FAQHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req CreateFAQRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	faq, err := h.faqs.Create(r.Context(), service.CreateFAQInput{
		TenantID:  tenantID,
		ChatbotID: chi.URLParam(r, "chatbotID"),
		Question:  req.Question,
		Answer:    req.Answer,
		Layout:    req.Layout,
		MediaKey:  req.MediaKey,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, faqToResponse(faq))
}

func (h *FAQHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	faqs, err := h.faqs.List(r.Context(), tenantID, chi.URLParam(r, "chatbotID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*FAQResponse, 0, len(faqs))
	for _, f := range faqs {
		resp = append(resp, faqToResponse(f))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *FAQHandler) InitMediaUpload(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if h.media == nil {
		api.ErrorWithCode(w, http.StatusServiceUnavailable, "service_unavailable", "media storage is not configured")
		return
	}

	var req MediaUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.media.InitUpload(r.Context(), service.InitUploadInput{
		TenantID:    tenantID,
		ChatbotID:   chi.URLParam(r, "chatbotID"),
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &MediaUploadResponse{MediaKey: res.MediaKey, UploadURL: res.UploadURL})
}
