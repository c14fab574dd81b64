package form

import (
	"testing"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProduct(t *testing.T) {
	in, err := ParseProduct("  Widget ", " 3", "2.50 ")
	require.NoError(t, err)
	assert.Equal(t, "Widget", in.Name)
	assert.Equal(t, 3, in.Quantity)
	assert.Equal(t, "2.50", in.UnitPrice.StringFixed(2))

	p := in.Product()
	assert.Equal(t, "7.50", p.LineTotal().StringFixed(2))
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name, qty, price string
		field, msg       string
	}{
		{"", "1", "1", "name", MsgNameRequired},
		{"A", "-1", "1", "quantity", MsgNegative},
		{"A", "1.5", "1", "quantity", MsgNotWholeNum},
		{"A", "abc", "1", "quantity", MsgNotWholeNum},
		{"A", "1", "-0.01", "unit_price", MsgNegative},
		{"A", "1", "ten", "unit_price", MsgNotNumber},
	}
	for _, tc := range cases {
		t.Run(tc.field+"/"+tc.qty+"/"+tc.price, func(t *testing.T) {
			_, err := ParseProduct(tc.name, tc.qty, tc.price)
			require.Error(t, err)
			assert.ErrorIs(t, err, dominv.ErrValidation)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
			assert.Equal(t, tc.msg, fe.Error())
		})
	}
}

func TestZeroIsAccepted(t *testing.T) {
	q, err := ParseQuantity("0")
	require.NoError(t, err)
	assert.Equal(t, 0, q)

	p, err := ParsePrice("0")
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestConfirmed(t *testing.T) {
	assert.True(t, Confirmed("y"))
	assert.True(t, Confirmed(" Y\n"))
	assert.False(t, Confirmed("yes"))
	assert.False(t, Confirmed(""))
}
