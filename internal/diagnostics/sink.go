package diagnostics

import (
	"context"

	"github.com/cloo-solutions/faqdesk/internal/logging"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
	"go.uber.org/zap"
)

// StageCounter counts absorbed failures per stage
type StageCounter interface {
	ObserveAbsorbed(stage string)
}

// Sink reports absorbed failures to the log, metrics and Sentry
type Sink struct {
	logger  *zap.Logger
	counter StageCounter
	capture func(ctx context.Context, err error, tags map[string]string)
}

func NewSink(logger *zap.Logger, counter StageCounter) *Sink {
	return &Sink{
		logger:  logging.OrNop(logger).Named("diagnostics"),
		counter: counter,
		capture: telemetry.CaptureWarning,
	}
}

// Absorbed implements service.DiagnosticSink
func (s *Sink) Absorbed(ctx context.Context, failure service.AbsorbedFailure) {
	stage := string(failure.Stage)
	s.logger.Warn("absorbed failure", zap.String("stage", stage), zap.Error(failure.Err))
	if s.counter != nil {
		s.counter.ObserveAbsorbed(stage)
	}
	if s.capture != nil {
		s.capture(ctx, failure, map[string]string{"stage": stage})
	}
}
