package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/repository"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

func ChatbotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Manage chatbots directly in the database",
	}

	cmd.PersistentFlags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(chatbotCreateCmd())
	cmd.AddCommand(chatbotListCmd())
	cmd.AddCommand(chatbotStatusCmd())

	return cmd
}

// withChatbotService opens the database and resolves the --tenant flag
func withChatbotService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.ChatbotService, tenantID string) error) error {
	ctx := context.Background()
	tenantRef, _ := cmd.Flags().GetString("tenant")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantID, err := resolveTenantID(ctx, repository.NewTenantRepository(pool), tenantRef)
	if err != nil {
		return err
	}

	svc := service.NewChatbotService(repository.NewChatbotRepository(pool), &service.DefaultUUIDGenerator{})
	return fn(ctx, svc, tenantID)
}

func printChatbot(cmd *cobra.Command, bot *domain.Chatbot) {
	if outputFormat, _ := cmd.Flags().GetString("output"); outputFormat == "json" {
		printJSON(map[string]interface{}{
			"id":                  bot.ID,
			"tenant_id":           bot.TenantID,
			"name":                bot.Name,
			"status":              bot.Status,
			"monthly_query_limit": bot.MonthlyQueryLimit,
			"created_at":          bot.CreatedAt,
		})
		return
	}
	fmt.Printf("%s: %s [%s] limit=%d\n", bot.ID, bot.Name, bot.Status, bot.MonthlyQueryLimit)
}

func chatbotCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a draft chatbot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withChatbotService(cmd, func(ctx context.Context, svc *service.ChatbotService, tenantID string) error {
				bot, err := svc.Create(ctx, tenantID, args[0], limit)
				if err != nil {
					return fmt.Errorf("failed to create chatbot: %w", err)
				}
				printChatbot(cmd, bot)
				return nil
			})
		},
	}

	cmd.Flags().Int("limit", 0, "Monthly query limit (0 for unlimited)")

	return cmd
}

func chatbotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List a tenant's chatbots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatbotService(cmd, func(ctx context.Context, svc *service.ChatbotService, tenantID string) error {
				bots, err := svc.List(ctx, tenantID)
				if err != nil {
					return fmt.Errorf("failed to list chatbots: %w", err)
				}
				if len(bots) == 0 {
					fmt.Println("No chatbots found")
					return nil
				}
				for _, bot := range bots {
					printChatbot(cmd, bot)
				}
				return nil
			})
		},
	}
}

func chatbotStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <chatbot-id> <draft|active|suspended>",
		Short: "Change a chatbot's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatbotService(cmd, func(ctx context.Context, svc *service.ChatbotService, tenantID string) error {
				bot, err := svc.SetStatus(ctx, tenantID, args[0], domain.ChatbotStatus(args[1]))
				if err != nil {
					return fmt.Errorf("failed to update chatbot: %w", err)
				}
				printChatbot(cmd, bot)
				return nil
			})
		},
	}
}
