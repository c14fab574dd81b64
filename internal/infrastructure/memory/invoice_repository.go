package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
)

// InvoiceRepository holds invoice drafts for the lifetime of the process.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*domain.Invoice
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices: make(map[string]*domain.Invoice),
	}
}

func (r *InvoiceRepository) Insert(ctx context.Context, inv *domain.Invoice) error {
	_ = ctx
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("invoice repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[inv.ID]; exists {
		return fmt.Errorf("invoice repository: duplicate id %s", inv.ID)
	}
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv.Clone(), nil
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	_ = ctx
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("invoice repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[inv.ID]; !exists {
		return domain.ErrNotFound
	}
	r.invoices[inv.ID] = inv.Clone()
	return nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}
