package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// SessionCmd starts a widget session and remembers its token
func SessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start a chat session for the selected chatbot",
		Long:  "Starts a widget session. Later ask, browse and action commands send its token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := resolveChatbotID(cmd)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd, false)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/chatbots/"+url.PathEscape(chatbotID)+"/sessions", struct{}{})
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}
			sess, err := Decode[SessionResult](resp)
			if err != nil {
				return err
			}

			err = UpdateGlobalConfig(func(c *GlobalConfig) {
				if c.Sessions == nil {
					c.Sessions = map[string]string{}
				}
				c.Sessions[chatbotID] = sess.Token
			})
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(sess)
			}
			fmt.Printf("Session %s started (expires %s)\n", sess.SessionID, sess.ExpiresAt)
			return nil
		},
	}
}

// widgetClient builds an anonymous client carrying the stored session token
// unless anonymous is set.
func widgetClient(cmd *cobra.Command, chatbotID string, anonymous bool) (*APIClient, error) {
	api, err := NewAPIClientWithCmd(cmd, false)
	if err != nil {
		return nil, err
	}
	api.apiKey = ""
	if anonymous {
		return api, nil
	}
	config, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if config != nil {
		api.WithSession(config.Sessions[chatbotID])
	}
	return api, nil
}

func AskCmd() *cobra.Command {
	var preview, anonymous bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the selected chatbot a question",
		Long: `Asks a question the way the widget does. With --preview the operator
preview endpoint is used instead, which works for draft chatbots and is
never logged. Previews still count against the monthly quota.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := resolveChatbotID(cmd)
			if err != nil {
				return err
			}
			out, err := ask(cmd, chatbotID, args[0], preview, anonymous)
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(out)
			}
			printAnswer(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Use the operator preview endpoint")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Do not send the stored session token")

	return cmd
}

func ask(cmd *cobra.Command, chatbotID, query string, preview, anonymous bool) (*AnswerResult, error) {
	body := map[string]string{"query": query}

	var (
		api  *APIClient
		path string
		err  error
	)
	if preview {
		api, err = NewAPIClientWithCmd(cmd, true)
		path = "/admin/chatbots/" + url.PathEscape(chatbotID) + "/preview"
	} else {
		api, err = widgetClient(cmd, chatbotID, anonymous)
		path = "/chatbots/" + url.PathEscape(chatbotID) + "/answer"
	}
	if err != nil {
		return nil, err
	}

	resp, err := api.Post(cmd.Context(), path, body)
	if err != nil {
		return nil, fmt.Errorf("ask failed: %w", err)
	}
	return Decode[AnswerResult](resp)
}

func printAnswer(out *AnswerResult) {
	if out.Intro != "" {
		fmt.Println(out.Intro)
		fmt.Println()
	}
	if len(out.Candidates) == 0 {
		fmt.Println("No matching answers.")
	}
	for i, c := range out.Candidates {
		fmt.Printf("%d. %s\n", i+1, c.Question)
		fmt.Printf("   %s\n", truncate(c.Answer, 200))
		if c.MediaURL != "" {
			fmt.Printf("   Media: %s\n", c.MediaURL)
		}
		fmt.Printf("   FAQ: %s\n", c.FAQID)
	}
	if out.EventID != "" {
		fmt.Printf("\nEvent: %s\n", out.EventID)
	}
	printDegraded(out.Degraded)
}

func BrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <faq-id>",
		Short: "Record a direct view of an FAQ entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := resolveChatbotID(cmd)
			if err != nil {
				return err
			}
			api, err := widgetClient(cmd, chatbotID, false)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/chatbots/"+url.PathEscape(chatbotID)+"/browse", map[string]string{"faq_id": args[0]})
			if err != nil {
				return fmt.Errorf("browse failed: %w", err)
			}
			out, err := Decode[BrowseResult](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(out)
			}
			if out.EventID == "" {
				fmt.Println("Browse accepted (not logged without a session)")
			} else {
				fmt.Printf("Browse logged as event %s\n", out.EventID)
			}
			printDegraded(out.Degraded)
			return nil
		},
	}
}

func ActionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "action <event-id> <faq-id> <viewed|not_viewed|like|dislike>",
		Short: "Record feedback on an answered candidate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := recordAction(cmd.Context(), cmd, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(out)
			}
			fmt.Printf("Recorded %s for %s on event %s\n", out.Action, out.FAQID, out.EventID)
			printDegraded(out.Degraded)
			return nil
		},
	}
}

func recordAction(ctx context.Context, cmd *cobra.Command, eventID, faqID, action string) (*ActionResult, error) {
	api, err := NewAPIClientWithCmd(cmd, false)
	if err != nil {
		return nil, err
	}
	api.apiKey = ""

	resp, err := api.Post(ctx, "/events/"+url.PathEscape(eventID)+"/actions", map[string]string{
		"faq_id": faqID,
		"action": action,
	})
	if err != nil {
		return nil, fmt.Errorf("action failed: %w", err)
	}
	return Decode[ActionResult](resp)
}
