package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/faqdesk/internal/config"
	"github.com/cloo-solutions/faqdesk/internal/database"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/repository"
)

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 2})
}

// resolveTenantID accepts a tenant ID or name
func resolveTenantID(ctx context.Context, tenantRepo *repository.TenantRepository, ref string) (string, error) {
	var (
		tenant *domain.Tenant
		err    error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		tenant, err = tenantRepo.GetByID(ctx, ref)
	} else {
		tenant, err = tenantRepo.GetByName(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return "", fmt.Errorf("tenant not found: %s", ref)
		}
		return "", err
	}
	return tenant.ID, nil
}

func printJSON(v interface{}) {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonBytes))
}
