package inventory

import (
	"context"
	"time"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService = "inventory-service"
	spanPrefix       = "UC."
	storePeer        = "inventory_store"
)

// instrument runs fn inside a span and records RED metrics plus a single use_case_done line.
func (s *Service) instrument(ctx context.Context, useCase, spanName string, fields []observability.Field, fn func(ctx context.Context) error) (err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCase))

	attrs := []attribute.KeyValue{attribute.String("use_case", useCase)}
	for _, f := range fields {
		if v, ok := f.Value.(string); ok {
			attrs = append(attrs, attribute.String("product."+f.Key, v))
		}
	}
	ctx, span := s.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	start := time.Now()

	defer func() {
		lat := time.Since(start).Seconds()
		outcome, statusText := "success", "OK"
		if err != nil {
			outcome, statusText = "error", dominv.FailureReason(err)
		}

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCase),
		)

		out := append([]observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}, fields...)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			out = append(out, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", out...)
	}()

	return fn(ctx)
}

// callStore times a repository call as an external request.
func (s *Service) callStore(endpoint string, fn func() error) error {
	start := time.Now()
	err := fn()
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", storePeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", storePeer),
		observability.L("endpoint", endpoint),
	)
	return err
}
