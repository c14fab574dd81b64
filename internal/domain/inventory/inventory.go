package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Inventory is the stock ledger: at most one Product per name, kept in insertion order.
// It is not safe for concurrent use; the application layer serialises access.
type Inventory struct {
	order []string
	items map[string]*Product
}

// NewInventory builds a ledger from a loaded product list. Duplicate names are merged like Add.
func NewInventory(products ...Product) *Inventory {
	inv := &Inventory{items: make(map[string]*Product, len(products))}
	for _, p := range products {
		inv.add(p)
	}
	return inv
}

// Add merges p into an existing entry of the same name by summing quantity, keeping the stored price.
// Otherwise p is appended as a new entry.
func (inv *Inventory) Add(p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	inv.add(p)
	return nil
}

func (inv *Inventory) add(p Product) {
	if existing, ok := inv.items[p.Name]; ok {
		existing.Quantity += p.Quantity
		return
	}
	cp := p
	inv.items[p.Name] = &cp
	inv.order = append(inv.order, p.Name)
}

// Update edits quantity and price of an existing entry in place.
func (inv *Inventory) Update(name string, quantity int, unitPrice decimal.Decimal) error {
	existing, ok := inv.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := (Product{Name: name, Quantity: quantity, UnitPrice: unitPrice}).Validate(); err != nil {
		return err
	}
	existing.Quantity = quantity
	existing.UnitPrice = unitPrice
	return nil
}

// DecrementStock removes amount units from name. Stock never goes negative.
func (inv *Inventory) DecrementStock(name string, amount int) error {
	existing, ok := inv.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > existing.Quantity {
		return fmt.Errorf("%w: %s: requested %d, available %d", ErrInsufficientStock, name, amount, existing.Quantity)
	}
	existing.Quantity -= amount
	return nil
}

// Restock adds amount units back to name.
func (inv *Inventory) Restock(name string, amount int) error {
	existing, ok := inv.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	existing.Quantity += amount
	return nil
}

// Remove drops the entry for name and reports whether there was one.
func (inv *Inventory) Remove(name string) bool {
	if _, ok := inv.items[name]; !ok {
		return false
	}
	delete(inv.items, name)
	for i, n := range inv.order {
		if n == name {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			break
		}
	}
	return true
}

func (inv *Inventory) Find(name string) (Product, bool) {
	p, ok := inv.items[name]
	if !ok {
		return Product{}, false
	}
	return *p, true
}

// Products returns a copy of every entry in insertion order.
func (inv *Inventory) Products() []Product {
	out := make([]Product, 0, len(inv.order))
	for _, name := range inv.order {
		out = append(out, *inv.items[name])
	}
	return out
}

func (inv *Inventory) Len() int { return len(inv.order) }

// TotalUnits sums the quantity of every entry.
func (inv *Inventory) TotalUnits() int {
	total := 0
	for _, p := range inv.items {
		total += p.Quantity
	}
	return total
}

func (inv *Inventory) Clone() *Inventory {
	return NewInventory(inv.Products()...)
}
