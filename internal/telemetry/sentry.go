// Package telemetry wraps Sentry tracing and error capture for faqdesk.
// Every helper is a no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const serverName = "faqdesk"

// Routes that are polled by infrastructure and never traced
var untracedTransactions = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client. The returned func flushes
// buffered events and should run on shutdown.
func Init(cfg Config, logger *zap.Logger) (func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.DSN,
		Environment:   cfg.Environment,
		Debug:         cfg.Debug,
		ServerName:    serverName,
		EnableTracing: true,
		TracesSampler: func(sc sentry.SamplingContext) float64 {
			if untracedTransactions[sc.Span.Name] {
				return 0
			}
			if sc.Span.ParentSpanID != (sentry.SpanID{}) {
				if sc.Span.Sampled.Bool() {
					return 1
				}
				return 0
			}
			return cfg.TracesSampleRate
		},
	})
	if err != nil {
		return func() {}, err
	}

	logger.Info("sentry tracing initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// SpanAttributes are tagged onto service spans when set
type SpanAttributes struct {
	TenantID  string
	ChatbotID string
	EventID   string
	Operation string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	for tag, v := range map[string]string{
		"tenant_id":  a.TenantID,
		"chatbot_id": a.ChatbotID,
		"event_id":   a.EventID,
	} {
		if v != "" {
			span.SetTag(tag, v)
		}
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureWarning reports a failure that was handled and did not fail the request
func CaptureWarning(ctx context.Context, err error, tags map[string]string) {
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func AddBreadcrumb(ctx context.Context, category, message string) {
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}
