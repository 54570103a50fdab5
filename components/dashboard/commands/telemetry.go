package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
)

// Telemetry allows commands to emit structured events.
type Telemetry = dashboard.Instrumentation

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// ReportingCommand forwards user-facing failures of the wrapped command
// to a notice sink. The error is still returned to the caller.
type ReportingCommand[T any] struct {
	inner gocommand.Commander[T]
	sink  dashboard.NoticeSink
}

// NewReportingCommand wraps inner.
func NewReportingCommand[T any](inner gocommand.Commander[T], sink dashboard.NoticeSink) *ReportingCommand[T] {
	return &ReportingCommand[T]{inner: inner, sink: sink}
}

// Execute implements gocommand.Commander.
func (c *ReportingCommand[T]) Execute(ctx context.Context, msg T) error {
	return dashboard.Report(ctx, c.sink, c.inner.Execute(ctx, msg))
}
