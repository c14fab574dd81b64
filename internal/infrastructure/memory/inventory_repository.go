package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
)

// InventoryRepository keeps the saved product list in memory. SetSaveErr makes every later Save fail.
type InventoryRepository struct {
	mu      sync.RWMutex
	items   []domain.Product
	saves   int
	saveErr error
}

func NewInventoryRepository(seed ...domain.Product) *InventoryRepository {
	return &InventoryRepository{items: cloneProducts(seed)}
}

func (r *InventoryRepository) Load(ctx context.Context) ([]domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneProducts(r.items), nil
}

func (r *InventoryRepository) Save(ctx context.Context, products []domain.Product) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.items = cloneProducts(products)
	r.saves++
	return nil
}

// Saves counts successful saves.
func (r *InventoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func (r *InventoryRepository) SetSaveErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func cloneProducts(items []domain.Product) []domain.Product {
	out := make([]domain.Product, len(items))
	copy(out, items)
	return out
}
