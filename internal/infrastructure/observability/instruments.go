package observability

import (
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// NewInstruments registers every metric the application reports on r.
func NewInstruments(r prometrics.Registry) Instruments {
	return Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests:   r.Counter(string(observability.MUsecaseRequests), "Use case executions by outcome", "use_case", "outcome"),
			observability.MHTTPRequests:      r.Counter(string(observability.MHTTPRequests), "HTTP requests by route and status", "route", "method", "status"),
			observability.MExternalRequests:  r.Counter(string(observability.MExternalRequests), "Calls to backing stores by outcome", "peer", "endpoint", "outcome"),
			observability.MInvoicesCommitted: r.Counter(string(observability.MInvoicesCommitted), "Invoices committed"),
			observability.MInvoiceRevenue:    r.Counter(string(observability.MInvoiceRevenue), "Sum of committed invoice totals"),
			observability.MLowStockEvents:    r.Counter(string(observability.MLowStockEvents), "Sales that left a product at or below the low stock threshold", "product"),
		},
		Histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration:         r.Histogram(string(observability.MUsecaseDuration), "Use case latency", prometheus.DefBuckets, "use_case"),
			observability.MHTTPRequestDuration:     r.Histogram(string(observability.MHTTPRequestDuration), "HTTP request latency", prometheus.DefBuckets, "route", "method"),
			observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration), "Backing store call latency", prometheus.DefBuckets, "peer", "endpoint"),
		},
		Gauges: map[observability.MetricKey]observability.Gauge{
			observability.MStockUnits:      r.Gauge(string(observability.MStockUnits), "Units on hand per product", "product"),
			observability.MProductsTracked: r.Gauge(string(observability.MProductsTracked), "Products in the inventory"),
		},
	}
}
