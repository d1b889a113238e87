package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/faqdesk/internal/cli"
	"github.com/cloo-solutions/faqdesk/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "faqdesk",
		Short: "faqdesk CLI - FAQ chatbots and query analytics",
		Long: `faqdesk CLI talks to a faqdesk server: ask a chatbot questions the way the
widget does, author FAQ entries, and inspect query analytics.

Environment variables:
  FAQDESK_API_KEY   API key for operator commands
  FAQDESK_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("chatbot", "", "Chatbot ID (overrides the selected chatbot)")
	cli.BindEnv(rootCmd.PersistentFlags(), "api-key", "FAQDESK_API_KEY")
	cli.BindEnv(rootCmd.PersistentFlags(), "api-url", "FAQDESK_API_URL")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.SessionCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.BrowseCmd())
	rootCmd.AddCommand(client.ActionCmd())
	rootCmd.AddCommand(client.ChatbotCmd())
	rootCmd.AddCommand(client.FAQCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.EventsCmd())
	rootCmd.AddCommand(client.IgnoreCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
