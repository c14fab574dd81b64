package sales

import (
	"context"
	"time"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/invoicebook/internal/domain/outbox"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	workerService = "sales_worker"
	spanPrefix    = "Worker."
)

// Worker turns committed invoices and low-stock notices into business metrics and log lines.
type Worker struct {
	subscriber domoutbox.Subscriber
	tracer     observability.Tracer

	log             observability.Logger
	reqCounter      observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram    observability.Histogram // usecase_duration_seconds{use_case}
	committed       observability.Counter   // invoices_committed_total
	revenue         observability.Counter   // invoice_revenue_total
	lowStockCounter observability.Counter   // inventory_low_stock_total{product}
}

func New(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()
	return &Worker{
		subscriber:      subscriber,
		tracer:          tel.Tracer(),
		log:             tel.Logger().With(observability.F("service", workerService)),
		reqCounter:      metrics.Counter(observability.MUsecaseRequests),
		durHistogram:    metrics.Histogram(observability.MUsecaseDuration),
		committed:       metrics.Counter(observability.MInvoicesCommitted),
		revenue:         metrics.Counter(observability.MInvoiceRevenue),
		lowStockCounter: metrics.Counter(observability.MLowStockEvents),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(dominvoice.InvoiceCommittedEvent{}.EventName(), w.handleInvoiceCommitted)
	w.subscriber.Subscribe(dominv.StockLowEvent{}.EventName(), w.handleStockLow)
}

func (w *Worker) handleInvoiceCommitted(ctx context.Context, e domoutbox.Event) error {
	const useCase = "sales.worker.invoice_committed"
	evt, ok := e.(dominvoice.InvoiceCommittedEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	return w.run(ctx, useCase, "InvoiceCommitted", []observability.Field{
		observability.F("invoice_id", evt.InvoiceID),
		observability.F("lines", evt.Lines),
		observability.F("total", evt.Total.StringFixed(2)),
	}, func() {
		w.committed.Add(1)
		revenue, _ := evt.Total.Float64()
		w.revenue.Add(revenue)
	})
}

func (w *Worker) handleStockLow(ctx context.Context, e domoutbox.Event) error {
	const useCase = "sales.worker.stock_low"
	evt, ok := e.(dominv.StockLowEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	fields := []observability.Field{
		observability.F("product", evt.ProductName),
		observability.F("quantity", evt.Quantity),
		observability.F("threshold", evt.Threshold),
	}
	return w.run(ctx, useCase, "StockLow", fields, func() {
		w.lowStockCounter.Add(1, observability.L("product", evt.ProductName))
		logctx.FromOr(ctx, w.log).Warn("stock_low", fields...)
	})
}

func (w *Worker) run(ctx context.Context, useCase, spanName string, fields []observability.Field, fn func()) error {
	ctx, span := w.tracer.Start(ctx, spanPrefix+spanName, attribute.String("use_case", useCase))
	start := time.Now()

	fn()

	lat := time.Since(start).Seconds()
	w.count(useCase, "success")
	w.durHistogram.Observe(lat, observability.L("use_case", useCase))

	logctx.FromOr(ctx, w.log).With(observability.F("use_case", useCase)).Info("use_case_done",
		append([]observability.Field{
			observability.F("outcome", "success"),
			observability.F("latency_seconds", lat),
		}, fields...)...)

	if span != nil {
		span.SetStatus(codes.Ok, "OK")
		span.End()
	}
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}
