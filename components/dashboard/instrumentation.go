package dashboard

import (
	"context"

	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// Instrumentation records engine events for observability. Event names
// follow dashboard.<noun>.<verb>.
type Instrumentation interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopInstrumentation struct{}

func (noopInstrumentation) Record(context.Context, string, map[string]any) {}

func normalizeInstrumentation(i Instrumentation) Instrumentation {
	if i == nil {
		return noopInstrumentation{}
	}
	return i
}

// LogInstrumentation writes every event as a structured info log.
type LogInstrumentation struct{}

// Record implements Instrumentation.
func (LogInstrumentation) Record(ctx context.Context, event string, payload map[string]any) {
	fields := make(j.MKV, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	log.Info(ctx, event, fields)
}
