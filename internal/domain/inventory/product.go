package inventory

import "github.com/shopspring/decimal"

// Product is a named stock entry. Name is the identity key and is matched case-sensitively.
type Product struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func NewProduct(name string, quantity int, unitPrice decimal.Decimal) (Product, error) {
	p := Product{Name: name, Quantity: quantity, UnitPrice: unitPrice}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Validate reports the first field that breaks the product invariants.
func (p Product) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if p.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// LineTotal is quantity times unit price.
func (p Product) LineTotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
