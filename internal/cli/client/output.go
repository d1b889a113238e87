package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// resolveChatbotID takes --chatbot, then the configured default chatbot
func resolveChatbotID(cmd *cobra.Command) (string, error) {
	if id, _ := cmd.Flags().GetString("chatbot"); id != "" {
		return id, nil
	}
	config, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if config != nil && config.ChatbotID != "" {
		return config.ChatbotID, nil
	}
	return "", fmt.Errorf("no chatbot selected (pass --chatbot or run 'faqdesk chatbot use <id>')")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printDegraded(stages []string) {
	if len(stages) > 0 {
		fmt.Printf("(degraded: %s)\n", strings.Join(stages, ", "))
	}
}
