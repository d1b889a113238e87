//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cloo-solutions/faqdesk/internal/api/handlers"
	"github.com/cloo-solutions/faqdesk/internal/diagnostics"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/embedcache"
	"github.com/cloo-solutions/faqdesk/internal/metrics"
	"github.com/cloo-solutions/faqdesk/internal/quota"
	"github.com/cloo-solutions/faqdesk/internal/repository"
	"github.com/cloo-solutions/faqdesk/internal/server"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"github.com/cloo-solutions/faqdesk/internal/session"
	"github.com/cloo-solutions/faqdesk/internal/storage"
	"github.com/cloo-solutions/faqdesk/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Media        *storage.MediaStore
	Auth         *service.AuthService
	BinaryDir    string
	ConfigDir    string
	TenantID     string
	APIKey       string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router on a free port
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	media, err := storage.NewMediaStore(ctx, storage.MediaStoreConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-media",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create media store: %v", err)
	}
	if err := media.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Media:      media,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		_ = e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		_ = os.RemoveAll(e.BinaryDir)
	}
	if e.ConfigDir != "" {
		_ = os.RemoveAll(e.ConfigDir)
	}
}

// Bootstrap creates a tenant and an operator API key. Tenants are CLI-only,
// so this goes through the auth service directly.
func (e *E2ETestEnv) Bootstrap() {
	tenant, err := e.Auth.CreateTenant(e.Ctx, "E2E Tenant")
	if err != nil {
		e.T.Fatalf("failed to create tenant: %v", err)
	}
	e.TenantID = tenant.ID

	token, err := e.Auth.CreateAPIKey(e.Ctx, tenant.ID, "e2e-test-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.APIKey = token
}

// CreateActiveChatbot creates a chatbot through the admin API and activates it
func (e *E2ETestEnv) CreateActiveChatbot(name string, monthlyLimit int) string {
	resp, err := e.Post("/admin/chatbots", map[string]interface{}{
		"name":                name,
		"monthly_query_limit": monthlyLimit,
	}, e.APIKey)
	if err != nil {
		e.T.Fatalf("failed to create chatbot: %v", err)
	}
	var bot struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &bot); err != nil {
		e.T.Fatalf("failed to parse chatbot: %v", err)
	}

	if _, err := e.Put("/admin/chatbots/"+bot.ID+"/status", map[string]string{"status": "active"}, e.APIKey); err != nil {
		e.T.Fatalf("failed to activate chatbot: %v", err)
	}
	return bot.ID
}

// AddFAQ creates an FAQ entry and returns its id
func (e *E2ETestEnv) AddFAQ(chatbotID, question, answer string) string {
	resp, err := e.Post("/admin/chatbots/"+chatbotID+"/faqs", map[string]string{
		"question": question,
		"answer":   answer,
	}, e.APIKey)
	if err != nil {
		e.T.Fatalf("failed to create FAQ: %v", err)
	}
	var faq struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &faq); err != nil {
		e.T.Fatalf("failed to parse FAQ: %v", err)
	}
	return faq.ID
}

// StartSession opens a widget session and returns its token
func (e *E2ETestEnv) StartSession(chatbotID string) string {
	resp, err := e.Post("/chatbots/"+chatbotID+"/sessions", nil, "")
	if err != nil {
		e.T.Fatalf("failed to start session: %v", err)
	}
	var sess struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &sess); err != nil {
		e.T.Fatalf("failed to parse session: %v", err)
	}
	return sess.Token
}

// BuildBinaries builds the faqdesk and faqdeskd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "faqdesk-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"faqdeskd", "faqdesk"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}

	e.ConfigDir, err = os.MkdirTemp("", "faqdesk-e2e-config-*")
	if err != nil {
		e.T.Fatalf("failed to create config dir: %v", err)
	}
}

// RunFaqdesk runs the faqdesk CLI with an isolated config directory
func (e *E2ETestEnv) RunFaqdesk(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "faqdesk"), args...)
	cmd.Env = append(os.Environ(),
		"FAQDESK_API_KEY="+e.APIKey,
		"FAQDESK_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.ConfigDir,
		"HOME="+e.ConfigDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// HTTPError carries a non-2xx response
type HTTPError struct {
	Status int
	Code   string
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d (%s): %s", e.Status, e.Code, e.Body)
}

// StatusOf returns the HTTP status of a failed request, or 0
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// Get performs a GET request. auth is an API key for admin routes.
func (e *E2ETestEnv) Get(path, auth string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, auth, "")
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, auth string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, auth, "")
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, auth string) (*APIResponse, error) {
	return e.doRequest(http.MethodPut, path, body, auth, "")
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, auth string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, auth, "")
}

// PostWithSession performs a widget POST carrying a session token
func (e *E2ETestEnv) PostWithSession(path string, body interface{}, sessionToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, "", sessionToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, auth, sessionToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	if sessionToken != "" {
		req.Header.Set("X-Session-Token", sessionToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{Status: resp.StatusCode, Code: apiResp.Code, Body: apiResp.Error}
	}

	return &apiResp, nil
}

// UploadFile uploads content to a presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// DownloadFile fetches a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// includeAllSelector keeps every candidate in ranking order, standing in for
// the LLM so answers are deterministic.
type includeAllSelector struct{}

func (includeAllSelector) SelectAnswers(_ context.Context, _ string, candidates []*domain.Candidate) (*domain.Selection, error) {
	sel := &domain.Selection{}
	if len(candidates) > 0 {
		sel.Intro = "Here is what I found."
	}
	for _, c := range candidates {
		sel.Decisions = append(sel.Decisions, domain.SelectionDecision{FAQID: c.FAQID, Include: true})
	}
	return sel, nil
}

// noEmbedder forces the fallback vector, leaving ranking to lexical search
type noEmbedder struct{}

func (noEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	logger := zap.NewNop()
	m := metrics.New()
	sink := diagnostics.NewSink(logger, m)
	uuidGen := &service.DefaultUUIDGenerator{}

	tenantRepo := repository.NewTenantRepository(e.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(e.Pool)
	chatbotRepo := repository.NewChatbotRepository(e.Pool)
	faqRepo := repository.NewFAQRepository(e.Pool)
	sessionRepo := repository.NewSessionRepository(e.Pool)
	eventRepo := repository.NewQueryEventRepository(e.Pool)
	actionRepo := repository.NewQueryActionRepository(e.Pool)
	txRunner := repository.NewTxRunner(e.Pool)

	e.Auth = service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	tokens, err := session.NewManager("e2e-session-secret-0123456789abcdef", time.Hour)
	if err != nil {
		e.T.Fatalf("failed to create session manager: %v", err)
	}

	answerSvc := service.NewAnswerService(service.AnswerDeps{
		Chatbots: chatbotRepo,
		FAQs:     faqRepo,
		Embedder: embedcache.New(noEmbedder{}, 16, m),
		Searcher: service.NewHybridSearchEngine(faqRepo),
		Selector: includeAllSelector{},
		Quota:    quota.NewGuard(quota.NewMemoryCounter(), m, logger),
		TxRunner: txRunner,
		Media:    e.Media,
		Sink:     sink,
		Metrics:  m,
		UUIDGen:  uuidGen,
	})
	engagementSvc := service.NewEngagementService(eventRepo, actionRepo, faqRepo, txRunner, sink, m)
	sessionSvc := service.NewSessionService(chatbotRepo, sessionRepo, tokens, uuidGen)
	chatbotSvc := service.NewChatbotService(chatbotRepo, uuidGen)
	faqSvc := service.NewFAQService(chatbotRepo, faqRepo, txRunner)
	mediaSvc := service.NewMediaService(chatbotRepo, e.Media, uuidGen)
	analyticsSvc := service.NewAnalyticsService(chatbotRepo, eventRepo, actionRepo, txRunner)

	router := server.NewRouter(server.RouterConfig{
		Logger:           logger,
		AuthValidator:    e.Auth,
		SessionVerifier:  tokens,
		HTTPObserver:     m,
		MetricsHandler:   m.Handler(),
		WidgetHandler:    handlers.NewWidgetHandler(answerSvc, engagementSvc, sessionSvc),
		ChatbotHandler:   handlers.NewChatbotHandler(chatbotSvc, answerSvc),
		FAQHandler:       handlers.NewFAQHandler(faqSvc, mediaSvc),
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
