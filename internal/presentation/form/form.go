// Package form turns raw text fields from a prompt or a request body into validated values.
package form

import (
	"strconv"
	"strings"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

const (
	MsgNegative     = "Value cannot be negative."
	MsgNotWholeNum  = "Value must be a whole number."
	MsgNotNumber    = "Value must be a number."
	MsgNameRequired = "Product name is required."
)

// Error is a rejected field. It wraps inventory.ErrValidation.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return dominv.ErrValidation }

type Input struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (in Input) Product() dominv.Product {
	return dominv.Product{Name: in.Name, Quantity: in.Quantity, UnitPrice: in.UnitPrice}
}

func ParseProduct(name, quantity, price string) (Input, error) {
	n, err := ParseName(name)
	if err != nil {
		return Input{}, err
	}
	q, err := ParseQuantity(quantity)
	if err != nil {
		return Input{}, err
	}
	p, err := ParsePrice(price)
	if err != nil {
		return Input{}, err
	}
	return Input{Name: n, Quantity: q, UnitPrice: p}, nil
}

func ParseName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", &Error{Field: "name", Msg: MsgNameRequired}
	}
	return name, nil
}

// ParseQuantity accepts a non-negative whole number.
func ParseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &Error{Field: "quantity", Msg: MsgNotWholeNum}
	}
	if q < 0 {
		return 0, &Error{Field: "quantity", Msg: MsgNegative}
	}
	return q, nil
}

// ParsePrice accepts a non-negative decimal such as "2.50" or "3".
func ParsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, &Error{Field: "unit_price", Msg: MsgNotNumber}
	}
	if p.IsNegative() {
		return decimal.Decimal{}, &Error{Field: "unit_price", Msg: MsgNegative}
	}
	return p, nil
}

// Confirmed reports whether answer is a "y" to a yes/no prompt.
func Confirmed(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
