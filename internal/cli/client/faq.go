package client

import (
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

func FAQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Author FAQ entries",
	}

	cmd.AddCommand(faqAddCmd())
	cmd.AddCommand(faqListCmd())

	return cmd
}

func faqAddCmd() *cobra.Command {
	var (
		question, answer, layout, mediaPath, mediaType string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an FAQ entry to the selected chatbot",
		Long: `Adds an FAQ entry. With --media the file is uploaded to object storage
first and attached to the entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := resolveChatbotID(cmd)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}

			body := map[string]string{
				"question": question,
				"answer":   answer,
				"layout":   layout,
			}

			if mediaPath != "" {
				if mediaType == "" {
					mediaType = detectMediaType(mediaPath)
				}
				key, err := uploadMedia(cmd, api, chatbotID, mediaPath, mediaType)
				if err != nil {
					return err
				}
				body["media_key"] = key
				if layout == "" {
					body["layout"] = strings.SplitN(mediaType, "/", 2)[0]
				}
			}

			resp, err := api.Post(cmd.Context(), "/admin/chatbots/"+url.PathEscape(chatbotID)+"/faqs", body)
			if err != nil {
				return fmt.Errorf("failed to add FAQ: %w", err)
			}
			faq, err := Decode[FAQ](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(faq)
			}
			fmt.Printf("FAQ %s added (embedding queued)\n", faq.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Question text (required)")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "Answer text (required)")
	cmd.Flags().StringVar(&layout, "layout", "", "Layout: text, image, video or link")
	cmd.Flags().StringVar(&mediaPath, "media", "", "Image or video file to attach")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "Media content type (detected from extension if omitted)")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}

// detectMediaType sniffs the file content, falling back to the extension.
func detectMediaType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil && !m.Is("application/octet-stream") {
		return strings.SplitN(m.String(), ";", 2)[0]
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "application/octet-stream"
}

func uploadMedia(cmd *cobra.Command, api *APIClient, chatbotID, path, contentType string) (string, error) {
	resp, err := api.Post(cmd.Context(), "/admin/chatbots/"+url.PathEscape(chatbotID)+"/media", map[string]string{
		"filename":     filepath.Base(path),
		"content_type": contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start media upload: %w", err)
	}
	upload, err := Decode[MediaUpload](resp)
	if err != nil {
		return "", err
	}

	if err := api.UploadFile(cmd.Context(), upload.UploadURL, path, contentType, nil); err != nil {
		return "", err
	}
	return upload.MediaKey, nil
}

func faqListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the selected chatbot's FAQ entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := resolveChatbotID(cmd)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/admin/chatbots/"+url.PathEscape(chatbotID)+"/faqs")
			if err != nil {
				return fmt.Errorf("failed to list FAQs: %w", err)
			}
			faqs, err := Decode[[]FAQ](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(faqs)
			}
			if len(*faqs) == 0 {
				fmt.Println("No FAQ entries.")
			}
			for _, f := range *faqs {
				fmt.Printf("%s [%s] hits=%d\n   %s\n", f.ID, f.Layout, f.HitCount, truncate(f.Question, 100))
			}
			return nil
		},
	}
}
