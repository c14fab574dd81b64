package inventory

import "time"

// StockLowEvent is emitted when a sale leaves a product at or below the restock threshold.
type StockLowEvent struct {
	ProductName string
	Quantity    int
	Threshold   int
	OccurredAt  time.Time
}

func (StockLowEvent) EventName() string { return "inventory.stock_low" }

func NewStockLowEvent(name string, quantity, threshold int) StockLowEvent {
	return StockLowEvent{
		ProductName: name,
		Quantity:    quantity,
		Threshold:   threshold,
		OccurredAt:  time.Now().UTC(),
	}
}
