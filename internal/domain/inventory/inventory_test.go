package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProduct_LineTotal(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		price    string
		want     string
	}{
		{"regular", 3, "2.50", "7.5"},
		{"zero quantity", 0, "9.99", "0"},
		{"zero price", 4, "0", "0"},
		{"fractional cents", 3, "0.335", "1.005"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Product{Name: "widget", Quantity: tc.quantity, UnitPrice: price(tc.price)}
			assert.True(t, p.LineTotal().Equal(price(tc.want)), "got %s", p.LineTotal())
		})
	}
}

func TestNewProduct_Validation(t *testing.T) {
	_, err := NewProduct("", 1, price("1"))
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewProduct("apple", -1, price("1"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewProduct("apple", 1, price("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	p, err := NewProduct("apple", 0, price("0"))
	require.NoError(t, err)
	assert.Equal(t, "apple", p.Name)
}

func TestInventory_AddMergesByName(t *testing.T) {
	inv := NewInventory()
	require.NoError(t, inv.Add(Product{Name: "apple", Quantity: 3, UnitPrice: price("1.20")}))
	require.NoError(t, inv.Add(Product{Name: "apple", Quantity: 5, UnitPrice: price("9.99")}))

	require.Equal(t, 1, inv.Len())
	p, ok := inv.Find("apple")
	require.True(t, ok)
	assert.Equal(t, 8, p.Quantity)
	assert.True(t, p.UnitPrice.Equal(price("1.20")))
}

func TestInventory_NameIsCaseSensitive(t *testing.T) {
	inv := NewInventory(
		Product{Name: "Apple", Quantity: 1, UnitPrice: price("1")},
		Product{Name: "apple", Quantity: 2, UnitPrice: price("1")},
	)
	assert.Equal(t, 2, inv.Len())
}

func TestInventory_AddRejectsInvalid(t *testing.T) {
	inv := NewInventory()
	err := inv.Add(Product{Name: "apple", Quantity: -2, UnitPrice: price("1")})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, inv.Len())
}

func TestInventory_NewInventoryMergesDuplicates(t *testing.T) {
	inv := NewInventory(
		Product{Name: "pear", Quantity: 1, UnitPrice: price("2")},
		Product{Name: "apple", Quantity: 3, UnitPrice: price("1")},
		Product{Name: "pear", Quantity: 4, UnitPrice: price("7")},
	)
	products := inv.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "pear", products[0].Name)
	assert.Equal(t, 5, products[0].Quantity)
	assert.True(t, products[0].UnitPrice.Equal(price("2")))
	assert.Equal(t, "apple", products[1].Name)
}

func TestInventory_DecrementStock(t *testing.T) {
	inv := NewInventory(Product{Name: "apple", Quantity: 10, UnitPrice: price("1")})

	require.NoError(t, inv.DecrementStock("apple", 4))
	p, _ := inv.Find("apple")
	assert.Equal(t, 6, p.Quantity)

	err := inv.DecrementStock("apple", 7)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	p, _ = inv.Find("apple")
	assert.Equal(t, 6, p.Quantity)

	assert.ErrorIs(t, inv.DecrementStock("apple", 0), ErrInvalidAmount)
	assert.ErrorIs(t, inv.DecrementStock("banana", 1), ErrNotFound)
}

func TestInventory_Restock(t *testing.T) {
	inv := NewInventory(Product{Name: "apple", Quantity: 1, UnitPrice: price("1")})
	require.NoError(t, inv.Restock("apple", 2))
	p, _ := inv.Find("apple")
	assert.Equal(t, 3, p.Quantity)
	assert.ErrorIs(t, inv.Restock("kiwi", 1), ErrNotFound)
}

func TestInventory_Update(t *testing.T) {
	inv := NewInventory(Product{Name: "apple", Quantity: 1, UnitPrice: price("1")})

	require.NoError(t, inv.Update("apple", 12, price("0.80")))
	p, _ := inv.Find("apple")
	assert.Equal(t, 12, p.Quantity)
	assert.True(t, p.UnitPrice.Equal(price("0.8")))

	assert.ErrorIs(t, inv.Update("kiwi", 1, price("1")), ErrNotFound)
	assert.ErrorIs(t, inv.Update("apple", 1, price("-1")), ErrInvalidPrice)
	p, _ = inv.Find("apple")
	assert.Equal(t, 12, p.Quantity)
}

func TestInventory_RemoveKeepsOrder(t *testing.T) {
	inv := NewInventory(
		Product{Name: "a", Quantity: 1, UnitPrice: price("1")},
		Product{Name: "b", Quantity: 1, UnitPrice: price("1")},
		Product{Name: "c", Quantity: 1, UnitPrice: price("1")},
	)
	assert.True(t, inv.Remove("b"))
	assert.False(t, inv.Remove("b"))

	names := []string{}
	for _, p := range inv.Products() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)
	_, ok := inv.Find("b")
	assert.False(t, ok)
}

func TestInventory_CloneIsIndependent(t *testing.T) {
	inv := NewInventory(Product{Name: "apple", Quantity: 5, UnitPrice: price("1")})
	clone := inv.Clone()
	require.NoError(t, clone.DecrementStock("apple", 5))

	p, _ := inv.Find("apple")
	assert.Equal(t, 5, p.Quantity)
	assert.Equal(t, 0, clone.TotalUnits())
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, FailureReasonNotFound, FailureReason(ErrNotFound))
	assert.Equal(t, FailureReasonInsufficientStock, FailureReason(ErrInsufficientStock))
	assert.Equal(t, FailureReasonValidation, FailureReason(ErrInvalidPrice))
	assert.Equal(t, FailureReasonPersistenceError, FailureReason(ErrPersistence))
	assert.Equal(t, "internal", FailureReason(errors.New("x")))
	assert.Equal(t, "", FailureReason(nil))
}
