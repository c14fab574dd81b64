package invoice

import (
	"context"
	"errors"
	"time"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	invoiceService = "invoice-service"
	spanPrefix     = "UC."
)

func failureReason(err error) string {
	switch {
	case errors.Is(err, dominvoice.ErrNotFound):
		return "invoice_not_found"
	case errors.Is(err, dominvoice.ErrCommitted):
		return "already_committed"
	case errors.Is(err, dominvoice.ErrEmptyInvoice):
		return "empty_invoice"
	default:
		return dominv.FailureReason(err)
	}
}

func (s *Service) instrument(ctx context.Context, useCase, spanName, invoiceID string, fn func(ctx context.Context) error) (err error) {
	if invoiceID != "" {
		ctx = logctx.Enrich(ctx, s.log, observability.F("invoice_id", invoiceID))
	}
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCase))

	ctx, span := s.tracer.Start(ctx, spanPrefix+spanName,
		attribute.String("use_case", useCase),
		attribute.String("invoice.id", invoiceID),
	)
	start := time.Now()

	defer func() {
		lat := time.Since(start).Seconds()
		outcome, statusText := "success", "OK"
		if err != nil {
			outcome, statusText = "error", failureReason(err)
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
		s.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	return fn(ctx)
}
