package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/faqdesk/internal/repository"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create and list tenants",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantListCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(repository.NewTenantRepository(pool), nil, &service.DefaultUUIDGenerator{})

	tenant, err := authSvc.CreateTenant(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{
			"id":         tenant.ID,
			"name":       tenant.Name,
			"created_at": tenant.CreatedAt,
		})
	} else {
		fmt.Printf("Tenant created: %s (%s)\n", tenant.Name, tenant.ID)
	}

	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		RunE:  runTenantList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenants, err := repository.NewTenantRepository(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(tenants))
		for i, t := range tenants {
			data[i] = map[string]interface{}{
				"id":         t.ID,
				"name":       t.Name,
				"created_at": t.CreatedAt,
			}
		}
		printJSON(data)
		return nil
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return nil
	}
	fmt.Println("Tenants:")
	for _, t := range tenants {
		fmt.Printf("  %s: %s (created: %s)\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
