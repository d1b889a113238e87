package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testTenant() *domain.Tenant {
	return domain.NewTenant("tenant-123", "Acme", time.Now().UTC())
}

func TestAuthService_CreateTenant(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockTenantRepo.On("Create", ctx, mock.MatchedBy(func(tenant *domain.Tenant) bool {
		return tenant.Name == "Acme" && tenant.ID == "tenant-123"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, NewMockUUIDGenerator("tenant-123"))
	tenant, err := service.CreateTenant(ctx, " Acme ")

	require.NoError(t, err)
	assert.Equal(t, "tenant-123", tenant.ID)
	mockTenantRepo.AssertExpectations(t)
}

func TestAuthService_CreateTenant_EmptyName(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)

	service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
	_, err := service.CreateTenant(ctx, "  ")

	assert.Error(t, err)
	mockTenantRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_EnsureTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing", func(t *testing.T) {
		mockTenantRepo := new(MockTenantRepository)
		mockTenantRepo.On("GetByName", ctx, "Acme").Return(testTenant(), nil)

		service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
		tenant, err := service.EnsureTenant(ctx, "Acme")

		require.NoError(t, err)
		assert.Equal(t, "tenant-123", tenant.ID)
		mockTenantRepo.AssertNotCalled(t, "Create")
	})

	t.Run("creates missing", func(t *testing.T) {
		mockTenantRepo := new(MockTenantRepository)
		mockTenantRepo.On("GetByName", ctx, "Acme").Return(nil, domain.ErrTenantNotFound)
		mockTenantRepo.On("Create", ctx, mock.Anything).Return(nil)

		service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator("tenant-new"))
		tenant, err := service.EnsureTenant(ctx, "Acme")

		require.NoError(t, err)
		assert.Equal(t, "tenant-new", tenant.ID)
	})
}

func TestAuthService_CreateAPIKey_GeneratesFqdToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(testTenant(), nil)

	var capturedKey *domain.APIKey
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return key.ID == "key-123" && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-123"))
	token, err := service.CreateAPIKey(ctx, "tenant-123", "widget-admin")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "fqd_"), "token should start with fqd_")
	assert.Equal(t, 68, len(token), "token should be fqd_ + 64 hex chars")
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	assert.Equal(t, hashToken(token), capturedKey.KeyHash)
}

func TestAuthService_CreateAPIKeyWithToken_RejectsMalformed(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "bootstrap", "ntx_"+strings.Repeat("a", 64))

	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
	mockAPIKeyRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	token := "fqd_" + strings.Repeat("ab", 32)

	t.Run("resolves tenant", func(t *testing.T) {
		mockAPIKeyRepo := new(MockAPIKeyRepository)
		mockAPIKeyRepo.On("GetByHash", ctx, hashToken(token)).Return(
			domain.NewAPIKey("key-1", "tenant-123", "k", hashToken(token), time.Now().UTC(), nil), nil)

		service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
		tenantID, err := service.ValidateAPIKey(ctx, token)

		require.NoError(t, err)
		assert.Equal(t, "tenant-123", tenantID)
	})

	t.Run("malformed token", func(t *testing.T) {
		service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())
		_, err := service.ValidateAPIKey(ctx, "invalid-token")

		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("unknown token", func(t *testing.T) {
		mockAPIKeyRepo := new(MockAPIKeyRepository)
		mockAPIKeyRepo.On("GetByHash", ctx, hashToken(token)).Return(nil, domain.ErrAPIKeyNotFound)

		service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
		_, err := service.ValidateAPIKey(ctx, token)

		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("revoked", func(t *testing.T) {
		revokedAt := time.Now().UTC()
		mockAPIKeyRepo := new(MockAPIKeyRepository)
		mockAPIKeyRepo.On("GetByHash", ctx, hashToken(token)).Return(
			domain.NewAPIKey("key-1", "tenant-123", "k", hashToken(token), time.Now().UTC(), &revokedAt), nil)

		service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
		_, err := service.ValidateAPIKey(ctx, token)

		assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
	})
}

func TestIsValidAPIToken(t *testing.T) {
	assert.True(t, IsValidAPIToken("fqd_"+strings.Repeat("0f", 32)))
	assert.False(t, IsValidAPIToken("fqd_"+strings.Repeat("0f", 31)))
	assert.False(t, IsValidAPIToken("fqd_"+strings.Repeat("zz", 32)))
	assert.False(t, IsValidAPIToken(""))
}
