package inventory

import (
	"context"
)

// Repository persists the whole product list at once.
// Load on a store that was never written returns an empty list and no error.
type Repository interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}
