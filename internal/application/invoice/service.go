package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	domoutbox "github.com/Zhima-Mochi/invoicebook/internal/domain/outbox"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"
	"github.com/shopspring/decimal"
)

const (
	useCaseOpen    = "invoice.open"
	useCaseAddLine = "invoice.add_line"
	useCaseDiscard = "invoice.discard"
	useCaseCommit  = "invoice.commit"
	useCaseSale    = "invoice.commit.stock"
	useCaseRestore = "invoice.commit.restore"
)

var ErrPriceRequired = fmt.Errorf("%w: invoice: unit price is required", dominv.ErrValidation)

// Service drives an invoice from an empty draft to a written report.
// With a nil Stock it runs without inventory tracking: lines are not checked and nothing is decremented.
type Service struct {
	mu        sync.Mutex
	drafts    DraftRepository
	stock     Stock
	sink      dominvoice.ReportSink
	publisher domoutbox.Publisher
	ids       IDGenerator
	now       func() time.Time

	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

type Option func(*Service)

// WithClock replaces time.Now for report dates and commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	drafts DraftRepository,
	stock Stock,
	sink dominvoice.ReportSink,
	publisher domoutbox.Publisher,
	ids IDGenerator,
	tel observability.Observability,
	opts ...Option,
) *Service {
	tel = observability.OrNop(tel)
	if publisher == nil {
		publisher = domoutbox.NopPublisher{}
	}
	s := &Service{
		drafts:       drafts,
		stock:        stock,
		sink:         sink,
		publisher:    publisher,
		ids:          ids,
		now:          time.Now,
		log:          tel.Logger().With(observability.F("service", invoiceService)),
		tracer:       tel.Tracer(),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TracksInventory reports whether lines are checked against and drawn from stock.
func (s *Service) TracksInventory() bool { return s.stock != nil }

func (s *Service) Open(ctx context.Context) (*dominvoice.Invoice, error) {
	inv := dominvoice.New(s.ids.NewID(), s.now())
	err := s.instrument(ctx, useCaseOpen, "OpenInvoice", inv.ID, func(ctx context.Context) error {
		return s.drafts.Insert(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv.Clone(), nil
}

type AddLineInput struct {
	Name     string
	Quantity int
	// UnitPrice falls back to the inventory price when nil.
	UnitPrice *decimal.Decimal
}

func (s *Service) AddLine(ctx context.Context, id string, in AddLineInput) (*dominvoice.Invoice, error) {
	var out *dominvoice.Invoice
	err := s.instrument(ctx, useCaseAddLine, "AddInvoiceLine", id, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		inv, err := s.drafts.Get(ctx, id)
		if err != nil {
			return err
		}

		price, err := s.linePrice(in)
		if err != nil {
			return err
		}
		line := dominv.Product{Name: in.Name, Quantity: in.Quantity, UnitPrice: price}

		var checker dominvoice.StockChecker
		if s.stock != nil {
			checker = s.stock
		}
		if err := inv.AddLine(line, checker); err != nil {
			return err
		}
		if err := s.drafts.Update(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

func (s *Service) linePrice(in AddLineInput) (decimal.Decimal, error) {
	if in.UnitPrice != nil {
		return *in.UnitPrice, nil
	}
	if s.stock == nil {
		return decimal.Decimal{}, ErrPriceRequired
	}
	p, ok := s.stock.Find(in.Name)
	if !ok {
		if in.Name == "" {
			return decimal.Decimal{}, dominv.ErrEmptyName
		}
		return decimal.Decimal{}, fmt.Errorf("%w: %s", dominv.ErrNotFound, in.Name)
	}
	return p.UnitPrice, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dominvoice.Invoice, error) {
	return s.drafts.Get(ctx, id)
}

func (s *Service) Total(ctx context.Context, id string) (decimal.Decimal, error) {
	inv, err := s.drafts.Get(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return inv.Total(), nil
}

// Render previews the report text dated now. It writes nothing.
func (s *Service) Render(ctx context.Context, id string) (string, error) {
	inv, err := s.drafts.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return dominvoice.Render(inv, s.now()), nil
}

// Discard drops a draft. Committed invoices are kept.
func (s *Service) Discard(ctx context.Context, id string) error {
	return s.instrument(ctx, useCaseDiscard, "DiscardInvoice", id, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		inv, err := s.drafts.Get(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == dominvoice.StatusCommitted {
			return dominvoice.ErrCommitted
		}
		return s.drafts.Delete(ctx, id)
	})
}

type CommitResult struct {
	InvoiceID string
	Total     decimal.Decimal
	Report    string
}

// Commit writes the report and takes the invoice's quantities out of stock as one step.
// Either both happen or neither is observable: the report is staged first, stock is saved next,
// the draft is marked committed, and only then does the report land. A later failure restores
// the stock in one mutation and puts the draft back to building.
func (s *Service) Commit(ctx context.Context, id string) (*CommitResult, error) {
	var res *CommitResult
	err := s.instrument(ctx, useCaseCommit, "CommitInvoice", id, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		inv, err := s.drafts.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.CanCommit(); err != nil {
			return err
		}

		now := s.now()
		report := dominvoice.Render(inv, now)

		staged, err := s.sink.Stage(ctx, report)
		if err != nil {
			return fmt.Errorf("invoice: stage report: %w", persistence(err))
		}

		demand := inv.Demand()
		if s.stock != nil {
			err := s.stock.Apply(ctx, useCaseSale, func(next *dominv.Inventory) error {
				for _, d := range demand {
					if err := next.DecrementStock(d.Name, d.Quantity); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				s.discard(ctx, staged)
				return err
			}
		}

		committed := inv.Clone()
		if err := committed.MarkCommitted(now); err != nil {
			s.discard(ctx, staged)
			s.restore(ctx, demand)
			return err
		}
		if err := s.drafts.Update(ctx, committed); err != nil {
			s.discard(ctx, staged)
			s.restore(ctx, demand)
			return fmt.Errorf("invoice: mark committed: %w", persistence(err))
		}

		if err := staged.Commit(); err != nil {
			s.restore(ctx, demand)
			s.reopen(ctx, inv)
			return fmt.Errorf("invoice: write report: %w", persistence(err))
		}

		if err := s.publisher.Publish(ctx, dominvoice.NewInvoiceCommittedEvent(committed)); err != nil {
			logctx.FromOr(ctx, s.log).Warn("invoice_committed_publish_failed",
				observability.F("error", err),
			)
		}

		res = &CommitResult{InvoiceID: committed.ID, Total: committed.Total(), Report: report}
		return nil
	})
	return res, err
}

func (s *Service) discard(ctx context.Context, staged dominvoice.StagedReport) {
	if err := staged.Discard(); err != nil {
		logctx.FromOr(ctx, s.log).Warn("report_discard_failed", observability.F("error", err))
	}
}

// restore puts a whole sale back as a single mutation: every line is restocked or none is.
func (s *Service) restore(ctx context.Context, demand []dominvoice.Demand) {
	if s.stock == nil {
		return
	}
	// The caller's context may already be done; restocking must still run.
	ctx = context.WithoutCancel(ctx)
	err := s.stock.Apply(ctx, useCaseRestore, func(next *dominv.Inventory) error {
		for _, d := range demand {
			if err := next.Restock(d.Name, d.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logctx.FromOr(ctx, s.log).Error("stock_restore_failed",
			observability.F("lines", len(demand)),
			observability.F("error", err),
		)
	}
}

// reopen writes the building draft back after its committed copy was stored.
func (s *Service) reopen(ctx context.Context, building *dominvoice.Invoice) {
	if err := s.drafts.Update(context.WithoutCancel(ctx), building); err != nil {
		logctx.FromOr(ctx, s.log).Error("invoice_reopen_failed", observability.F("error", err))
	}
}

func persistence(err error) error {
	if errors.Is(err, dominv.ErrPersistence) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", dominv.ErrPersistence, err)
}
