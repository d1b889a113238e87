package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/domain"
)

// StorageClientInterface presigns media transfers
type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// MediaService hands out upload URLs for FAQ images and videos
type MediaService struct {
	chatbots      ChatbotRepositoryInterface
	storageClient StorageClientInterface
	uuidGen       UUIDGenerator
}

func NewMediaService(chatbots ChatbotRepositoryInterface, storageClient StorageClientInterface, uuidGen UUIDGenerator) *MediaService {
	return &MediaService{
		chatbots:      chatbots,
		storageClient: storageClient,
		uuidGen:       uuidGen,
	}
}

type InitUploadInput struct {
	TenantID    string
	ChatbotID   string
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	MediaKey  string
	UploadURL string
}

// InitUpload reserves a media key under the chatbot and presigns a PUT for it.
// The key is then set on an FAQ entry.
func (s *MediaService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	ct := strings.ToLower(strings.TrimSpace(input.ContentType))
	if !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "video/") {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "media must be an image or video")
	}

	bot, err := ownedChatbot(ctx, s.chatbots, input.TenantID, input.ChatbotID)
	if err != nil {
		return nil, err
	}

	key := buildMediaKey(bot.TenantID, bot.ID, s.uuidGen.NewString(), filename)

	uploadURL, err := s.storageClient.GenerateUploadURL(ctx, key, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{
		MediaKey:  key,
		UploadURL: uploadURL,
	}, nil
}

func buildMediaKey(tenantID, chatbotID, mediaID, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", tenantID, chatbotID, mediaID, filename)
}
