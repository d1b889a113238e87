package client

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func ChatbotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Manage chatbots",
	}

	cmd.AddCommand(chatbotCreateCmd())
	cmd.AddCommand(chatbotListCmd())
	cmd.AddCommand(chatbotUseCmd())
	cmd.AddCommand(chatbotStatusCmd())
	cmd.AddCommand(chatbotQuotaCmd())

	return cmd
}

func printChatbot(cmd *cobra.Command, bot *Chatbot) error {
	if outputJSON(cmd) {
		return printJSON(bot)
	}
	limit := "unlimited"
	if bot.MonthlyQueryLimit > 0 {
		limit = strconv.Itoa(bot.MonthlyQueryLimit) + "/month"
	}
	fmt.Printf("%s: %s [%s] %s\n", bot.ID, bot.Name, bot.Status, limit)
	return nil
}

func chatbotCreateCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a draft chatbot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Post(cmd.Context(), "/admin/chatbots", map[string]interface{}{
				"name":                args[0],
				"monthly_query_limit": limit,
			})
			if err != nil {
				return fmt.Errorf("failed to create chatbot: %w", err)
			}
			bot, err := Decode[Chatbot](resp)
			if err != nil {
				return err
			}
			return printChatbot(cmd, bot)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Monthly query limit (0 for unlimited)")

	return cmd
}

func chatbotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chatbots",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/admin/chatbots")
			if err != nil {
				return fmt.Errorf("failed to list chatbots: %w", err)
			}
			bots, err := Decode[[]Chatbot](resp)
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(bots)
			}
			if len(*bots) == 0 {
				fmt.Println("No chatbots found.")
			}
			for i := range *bots {
				_ = printChatbot(cmd, &(*bots)[i])
			}
			return nil
		},
	}
}

func chatbotUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <chatbot-id>",
		Short: "Select the default chatbot for other commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := UpdateGlobalConfig(func(c *GlobalConfig) { c.ChatbotID = args[0] }); err != nil {
				return err
			}
			fmt.Printf("Using chatbot %s\n", args[0])
			return nil
		},
	}
}

func chatbotStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <draft|active|suspended>",
		Short: "Change the selected chatbot's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateChatbot(cmd, "status", map[string]interface{}{"status": args[0]})
		},
	}
}

func chatbotQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota <monthly-limit>",
		Short: "Set the selected chatbot's monthly query limit (0 for unlimited)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := strconv.Atoi(args[0])
			if err != nil || limit < 0 {
				return fmt.Errorf("monthly limit must be a non-negative integer")
			}
			return updateChatbot(cmd, "quota", map[string]interface{}{"monthly_query_limit": limit})
		},
	}
}

func updateChatbot(cmd *cobra.Command, field string, body map[string]interface{}) error {
	chatbotID, err := resolveChatbotID(cmd)
	if err != nil {
		return err
	}
	api, err := NewAPIClientWithCmd(cmd, true)
	if err != nil {
		return err
	}
	resp, err := api.Put(cmd.Context(), "/admin/chatbots/"+url.PathEscape(chatbotID)+"/"+field, body)
	if err != nil {
		return fmt.Errorf("failed to update chatbot: %w", err)
	}
	bot, err := Decode[Chatbot](resp)
	if err != nil {
		return err
	}
	return printChatbot(cmd, bot)
}
