package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/invoicebook/internal/domain/outbox"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext stores a logger for one event delivery on ctx.
// It carries event_id (generated when attrs has none), trace_id/span_id when valid, and the remaining attrs.
// Keep attrs low-cardinality: event name, component.
func WithEventContext(ctx context.Context, base observability.Logger, attrs map[string]string) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, len(attrs)+3)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscriber decorates a bus so every handler runs with an event-scoped logger.
type Subscriber struct {
	next      domoutbox.Subscriber
	logger    observability.Logger
	component string
}

func NewSubscriber(next domoutbox.Subscriber, logger observability.Logger, component string) *Subscriber {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Subscriber{next: next, logger: logger, component: component}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		ctx = WithEventContext(ctx, logctx.FromOr(ctx, s.logger), map[string]string{
			"event":     e.EventName(),
			"component": s.component,
		})
		return h(ctx, e)
	})
}
