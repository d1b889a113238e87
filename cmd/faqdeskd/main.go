package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/faqdesk/internal/cli"
	"github.com/cloo-solutions/faqdesk/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "faqdeskd",
		Short: "faqdesk server and admin CLI",
		Long:  "faqdesk daemon for running the API server and managing tenants, API keys and chatbots",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.ChatbotCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
