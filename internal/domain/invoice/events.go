package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceCommittedEvent is emitted once the report is written and stock has been taken.
type InvoiceCommittedEvent struct {
	InvoiceID  string
	Lines      int
	Total      decimal.Decimal
	OccurredAt time.Time
}

func (InvoiceCommittedEvent) EventName() string { return "invoice.committed" }

func NewInvoiceCommittedEvent(inv *Invoice) InvoiceCommittedEvent {
	return InvoiceCommittedEvent{
		InvoiceID:  inv.ID,
		Lines:      inv.Len(),
		Total:      inv.Total(),
		OccurredAt: time.Now().UTC(),
	}
}
