package invoice

import (
	"context"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
)

// DraftRepository stores invoices between requests. Implementations return copies.
type DraftRepository interface {
	Insert(ctx context.Context, inv *dominvoice.Invoice) error
	Get(ctx context.Context, id string) (*dominvoice.Invoice, error)
	Update(ctx context.Context, inv *dominvoice.Invoice) error
	Delete(ctx context.Context, id string) error
}

// Stock is the inventory side of checkout. *inventory.Service implements it.
type Stock interface {
	Find(name string) (dominv.Product, bool)
	Apply(ctx context.Context, useCase string, mutate func(next *dominv.Inventory) error) error
}

type IDGenerator interface {
	NewID() string
}
