package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("invoice: not found")
	ErrCommitted    = errors.New("invoice: already committed")
	ErrEmptyInvoice = fmt.Errorf("%w: invoice: cannot commit an empty invoice", inventory.ErrValidation)
	ErrInvalidLine  = fmt.Errorf("%w: invoice: line quantity must be greater than zero", inventory.ErrValidation)
)

type Status string

const (
	StatusBuilding  Status = "building"
	StatusCommitted Status = "committed"
)

// Line is a quantity/price snapshot taken when the line was added. It does not track later inventory edits.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// StockChecker is the read side of the inventory an invoice draws against.
type StockChecker interface {
	Find(name string) (inventory.Product, bool)
}

type Invoice struct {
	ID          string
	Status      Status
	CreatedAt   time.Time
	CommittedAt time.Time
	lines       []Line
}

func New(id string, now time.Time) *Invoice {
	return &Invoice{
		ID:        id,
		Status:    StatusBuilding,
		CreatedAt: now.UTC(),
	}
}

// AddLine appends p as a line once it passes validation and, when stock is non-nil, the availability check.
// Quantities already on the invoice for the same name count against the available stock.
// On error the invoice is unchanged.
func (i *Invoice) AddLine(p inventory.Product, stock StockChecker) error {
	if i.Status == StatusCommitted {
		return ErrCommitted
	}
	if p.Name == "" {
		return inventory.ErrEmptyName
	}
	if p.Quantity <= 0 {
		return ErrInvalidLine
	}
	if p.UnitPrice.IsNegative() {
		return inventory.ErrInvalidPrice
	}
	if stock != nil {
		entry, ok := stock.Find(p.Name)
		if !ok {
			return fmt.Errorf("%w: %s", inventory.ErrNotFound, p.Name)
		}
		requested := i.quantityOf(p.Name) + p.Quantity
		if entry.Quantity < requested {
			return fmt.Errorf("%w: %s: requested %d, available %d",
				inventory.ErrInsufficientStock, p.Name, requested, entry.Quantity)
		}
	}
	i.lines = append(i.lines, Line{Name: p.Name, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	return nil
}

func (i *Invoice) quantityOf(name string) int {
	total := 0
	for _, l := range i.lines {
		if l.Name == name {
			total += l.Quantity
		}
	}
	return total
}

// Total is the sum of every line total; zero for an empty invoice.
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (i *Invoice) Lines() []Line {
	return append([]Line(nil), i.lines...)
}

func (i *Invoice) Len() int { return len(i.lines) }

// Demand is the quantity per product name, in order of first appearance.
type Demand struct {
	Name     string
	Quantity int
}

func (i *Invoice) Demand() []Demand {
	idx := make(map[string]int, len(i.lines))
	var out []Demand
	for _, l := range i.lines {
		if j, ok := idx[l.Name]; ok {
			out[j].Quantity += l.Quantity
			continue
		}
		idx[l.Name] = len(out)
		out = append(out, Demand{Name: l.Name, Quantity: l.Quantity})
	}
	return out
}

// CanCommit reports why MarkCommitted would fail, without changing state.
func (i *Invoice) CanCommit() error {
	if i.Status == StatusCommitted {
		return ErrCommitted
	}
	if len(i.lines) == 0 {
		return ErrEmptyInvoice
	}
	return nil
}

func (i *Invoice) MarkCommitted(now time.Time) error {
	if err := i.CanCommit(); err != nil {
		return err
	}
	i.Status = StatusCommitted
	i.CommittedAt = now.UTC()
	return nil
}

func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	clone := *i
	clone.lines = i.Lines()
	return &clone
}
