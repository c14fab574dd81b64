package sales

import (
	"context"
	"sync"
	"testing"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/invoicebook/internal/domain/outbox"
	infraobs "github.com/Zhima-Mochi/invoicebook/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sumCounter struct {
	mu     sync.Mutex
	total  float64
	labels []observability.Label
}

func (c *sumCounter) Add(d float64, labels ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += d
	c.labels = labels
}

func (c *sumCounter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

type directBus struct{ handlers map[string][]domoutbox.Handler }

func (b *directBus) Subscribe(name string, h domoutbox.Handler) {
	if b.handlers == nil {
		b.handlers = make(map[string][]domoutbox.Handler)
	}
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *directBus) deliver(t *testing.T, e domoutbox.Event) {
	t.Helper()
	for _, h := range b.handlers[e.EventName()] {
		require.NoError(t, h(context.Background(), e))
	}
}

func TestWorkerRecordsCommittedInvoices(t *testing.T) {
	committed, revenue, low := &sumCounter{}, &sumCounter{}, &sumCounter{}
	tel := infraobs.New(nil, nil, infraobs.Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MInvoicesCommitted: committed,
			observability.MInvoiceRevenue:    revenue,
			observability.MLowStockEvents:    low,
		},
	})
	bus := &directBus{}
	New(bus, tel).Start()

	bus.deliver(t, dominvoice.InvoiceCommittedEvent{InvoiceID: "a", Lines: 2, Total: decimal.RequireFromString("25.50")})
	bus.deliver(t, dominvoice.InvoiceCommittedEvent{InvoiceID: "b", Lines: 1, Total: decimal.RequireFromString("4.50")})

	assert.Equal(t, 2.0, committed.value())
	assert.InDelta(t, 30.0, revenue.value(), 1e-9)
	assert.Equal(t, 0.0, low.value())

	bus.deliver(t, dominv.NewStockLowEvent("Widget", 1, 2))
	assert.Equal(t, 1.0, low.value())
	assert.Equal(t, []observability.Label{observability.L("product", "Widget")}, low.labels)
}

func TestWorkerWithoutSubscriberIsInert(t *testing.T) {
	assert.NotPanics(t, func() { New(nil, nil).Start() })
}
