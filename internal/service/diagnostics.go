package service

import (
	"context"
	"fmt"
)

// Stage names a best-effort step whose failure is absorbed rather than returned
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageSearch     Stage = "search"
	StageMediaURL   Stage = "media_url"
	StageEventLog   Stage = "event_log"
	StageReadCount  Stage = "read_count"
	StageHitCounter Stage = "hit_counter"
	StageBrowseLog  Stage = "browse_log"
)

// AbsorbedFailure is a failure the caller does not see as an error. It is
// reported on the operation's outcome and to the DiagnosticSink.
type AbsorbedFailure struct {
	Stage Stage
	Err   error
}

func (f AbsorbedFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f AbsorbedFailure) Unwrap() error {
	return f.Err
}

// DiagnosticSink receives absorbed failures for logging, metrics and alerting
type DiagnosticSink interface {
	Absorbed(ctx context.Context, failure AbsorbedFailure)
}

type nopSink struct{}

func (nopSink) Absorbed(context.Context, AbsorbedFailure) {}

// absorber collects the absorbed failures of one operation
type absorber struct {
	sink     DiagnosticSink
	failures []AbsorbedFailure
}

func newAbsorber(sink DiagnosticSink) *absorber {
	if sink == nil {
		sink = nopSink{}
	}
	return &absorber{sink: sink}
}

func (a *absorber) absorb(ctx context.Context, stage Stage, err error) {
	failure := AbsorbedFailure{Stage: stage, Err: err}
	a.failures = append(a.failures, failure)
	a.sink.Absorbed(ctx, failure)
}

func (a *absorber) list() []AbsorbedFailure {
	return a.failures
}
