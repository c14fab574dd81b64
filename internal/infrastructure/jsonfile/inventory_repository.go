package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	domain "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// record is the on-disk shape of one product. unit_price is written as a bare JSON number.
type record struct {
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
}

// InventoryRepository keeps the product list as a JSON array in a single file.
type InventoryRepository struct {
	path string
}

func NewInventoryRepository(path string) *InventoryRepository {
	return &InventoryRepository{path: path}
}

func (r *InventoryRepository) Load(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Product{}, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, r.path, err)
	}
	products := make([]domain.Product, 0, len(records))
	for i, rec := range records {
		unitPrice := decimal.Zero
		if rec.UnitPrice != "" {
			if unitPrice, err = decimal.NewFromString(rec.UnitPrice.String()); err != nil {
				return nil, fmt.Errorf("%w: %s: entry %d: unit_price: %w", domain.ErrPersistence, r.path, i, err)
			}
		}
		p := domain.Product{Name: rec.Name, Quantity: rec.Quantity, UnitPrice: unitPrice}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %w", domain.ErrPersistence, r.path, i, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *InventoryRepository) Save(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]record, 0, len(products))
	for _, p := range products {
		records = append(records, record{Name: p.Name, Quantity: p.Quantity, UnitPrice: json.Number(p.UnitPrice.String())})
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrPersistence, err)
	}
	if err := writeFileAtomic(r.path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, r.path, err)
	}
	return nil
}
