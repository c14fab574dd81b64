package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/invoicebook/internal/domain/outbox"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"
	"github.com/shopspring/decimal"
)

const (
	useCaseLoad   = "inventory.load"
	useCaseAdd    = "inventory.add"
	useCaseUpdate = "inventory.update"
	useCaseRemove = "inventory.remove"
)

// Service owns the live stock ledger. Every mutation is applied to a copy,
// saved, and only then swapped in, so a failed save leaves the ledger as it was.
type Service struct {
	mu        sync.RWMutex
	inv       *dominv.Inventory
	repo      dominv.Repository
	publisher domoutbox.Publisher
	lowStock  int

	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	stockGauge   observability.Gauge     // inventory_stock_units{product}
	countGauge   observability.Gauge     // inventory_products
}

type Option func(*Service)

// WithLowStockThreshold makes sales that leave a product at or below n units publish a StockLowEvent.
func WithLowStockThreshold(n int) Option {
	return func(s *Service) { s.lowStock = n }
}

func NewService(repo dominv.Repository, publisher domoutbox.Publisher, tel observability.Observability, opts ...Option) *Service {
	tel = observability.OrNop(tel)
	if publisher == nil {
		publisher = domoutbox.NopPublisher{}
	}
	metrics := tel.Metrics()
	s := &Service{
		inv:          dominv.NewInventory(),
		repo:         repo,
		publisher:    publisher,
		lowStock:     -1,
		log:          tel.Logger().With(observability.F("service", inventoryService)),
		tracer:       tel.Tracer(),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		stockGauge:   metrics.Gauge(observability.MStockUnits),
		countGauge:   metrics.Gauge(observability.MProductsTracked),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the ledger with the persisted product list. A store that was never written loads as empty.
func (s *Service) Load(ctx context.Context) error {
	return s.instrument(ctx, useCaseLoad, "LoadInventory", nil, func(ctx context.Context) error {
		var products []dominv.Product
		err := s.callStore("load", func() error {
			var err error
			products, err = s.repo.Load(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("inventory: load: %w", asPersistence(err))
		}

		s.mu.Lock()
		s.inv = dominv.NewInventory(products...)
		s.observeStock(s.inv)
		s.mu.Unlock()

		logctx.FromOr(ctx, s.log).Debug("inventory_loaded", observability.F("products", len(products)))
		return nil
	})
}

// AddProduct merges p into the ledger and returns the stored entry.
func (s *Service) AddProduct(ctx context.Context, p dominv.Product) (dominv.Product, error) {
	var stored dominv.Product
	err := s.instrument(ctx, useCaseAdd, "AddProduct", productFields(p.Name), func(ctx context.Context) error {
		return s.mutate(ctx, func(next *dominv.Inventory) error {
			if err := next.Add(p); err != nil {
				return err
			}
			stored, _ = next.Find(p.Name)
			return nil
		})
	})
	return stored, err
}

type UpdateProductInput struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// UpdateProduct edits quantity and price of an existing entry in place.
func (s *Service) UpdateProduct(ctx context.Context, in UpdateProductInput) (dominv.Product, error) {
	var stored dominv.Product
	err := s.instrument(ctx, useCaseUpdate, "UpdateProduct", productFields(in.Name), func(ctx context.Context) error {
		return s.mutate(ctx, func(next *dominv.Inventory) error {
			if err := next.Update(in.Name, in.Quantity, in.UnitPrice); err != nil {
				return err
			}
			stored, _ = next.Find(in.Name)
			return nil
		})
	})
	return stored, err
}

// RemoveProduct drops name from the ledger; ErrNotFound when there is no such entry.
func (s *Service) RemoveProduct(ctx context.Context, name string) error {
	return s.instrument(ctx, useCaseRemove, "RemoveProduct", productFields(name), func(ctx context.Context) error {
		err := s.mutate(ctx, func(next *dominv.Inventory) error {
			if !next.Remove(name) {
				return fmt.Errorf("%w: %s", dominv.ErrNotFound, name)
			}
			return nil
		})
		if err == nil {
			s.stockGauge.Set(0, observability.L("product", name))
		}
		return err
	})
}

// Apply runs a composite mutation under the same copy, save, swap rule as the single-product operations.
// useCase labels the mutation in logs and metrics.
func (s *Service) Apply(ctx context.Context, useCase string, mutate func(next *dominv.Inventory) error) error {
	return s.instrument(ctx, useCase, "ApplyInventory", nil, func(ctx context.Context) error {
		return s.mutate(ctx, mutate)
	})
}

func (s *Service) GetProduct(ctx context.Context, name string) (dominv.Product, error) {
	_ = ctx
	p, ok := s.Find(name)
	if !ok {
		return dominv.Product{}, fmt.Errorf("%w: %s", dominv.ErrNotFound, name)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) []dominv.Product {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv.Products()
}

// Snapshot returns a private copy of the live ledger.
func (s *Service) Snapshot() *dominv.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv.Clone()
}

// Find looks name up in the live ledger. It satisfies invoice.StockChecker.
func (s *Service) Find(name string) (dominv.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv.Find(name)
}

func (s *Service) mutate(ctx context.Context, fn func(next *dominv.Inventory) error) error {
	s.mu.Lock()
	prev := s.inv
	next := prev.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	err := s.callStore("save", func() error { return s.repo.Save(ctx, next.Products()) })
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("inventory: save: %w", asPersistence(err))
	}
	s.inv = next
	s.observeStock(next)
	s.mu.Unlock()

	s.publishLowStock(ctx, prev, next)
	return nil
}

func (s *Service) observeStock(inv *dominv.Inventory) {
	for _, p := range inv.Products() {
		s.stockGauge.Set(float64(p.Quantity), observability.L("product", p.Name))
	}
	s.countGauge.Set(float64(inv.Len()))
}

func (s *Service) publishLowStock(ctx context.Context, prev, next *dominv.Inventory) {
	if s.lowStock < 0 {
		return
	}
	for _, p := range next.Products() {
		before, ok := prev.Find(p.Name)
		if !ok || p.Quantity >= before.Quantity || p.Quantity > s.lowStock {
			continue
		}
		if err := s.publisher.Publish(ctx, dominv.NewStockLowEvent(p.Name, p.Quantity, s.lowStock)); err != nil {
			logctx.FromOr(ctx, s.log).Warn("stock_low_publish_failed",
				observability.F("product", p.Name),
				observability.F("error", err),
			)
		}
	}
}

func productFields(name string) []observability.Field {
	return []observability.Field{observability.F("name", name)}
}

func asPersistence(err error) error {
	if errors.Is(err, dominv.ErrPersistence) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", dominv.ErrPersistence, err)
}
