package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	appinv "github.com/Zhima-Mochi/invoicebook/internal/application/inventory"
	appinvoice "github.com/Zhima-Mochi/invoicebook/internal/application/invoice"
	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/id"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/memory"
)

// flakyRepo fails saves on demand in front of the real file store.
type flakyRepo struct {
	dominv.Repository
	failSave bool
}

func (r *flakyRepo) Save(ctx context.Context, products []dominv.Product) error {
	if r.failSave {
		return errors.New("disk full")
	}
	return r.Repository.Save(ctx, products)
}

// flakySink fails the final rename of a staged report on demand.
type flakySink struct {
	dominvoice.ReportSink
	failCommit bool
}

func (s *flakySink) Stage(ctx context.Context, report string) (dominvoice.StagedReport, error) {
	staged, err := s.ReportSink.Stage(ctx, report)
	if err != nil || !s.failCommit {
		return staged, err
	}
	return failingCommit{staged}, nil
}

type failingCommit struct{ dominvoice.StagedReport }

func (f failingCommit) Commit() error {
	_ = f.StagedReport.Discard()
	return errors.New("rename failed")
}

type bookkeepingContext struct {
	dir           string
	inventoryPath string
	reportPath    string

	repo     *flakyRepo
	sink     *flakySink
	stock    *appinv.Service
	invoices *appinvoice.Service

	product   dominv.Product
	invoiceID string
	err       error
}

func (c *bookkeepingContext) reset() error {
	dir, err := os.MkdirTemp("", "invoicebook-features-*")
	if err != nil {
		return err
	}
	*c = bookkeepingContext{
		dir:           dir,
		inventoryPath: filepath.Join(dir, "inventory.json"),
		reportPath:    filepath.Join(dir, "invoices.txt"),
	}
	return nil
}

func (c *bookkeepingContext) cleanup() {
	if c.dir != "" {
		_ = os.RemoveAll(c.dir)
	}
}

func (c *bookkeepingContext) start() error {
	c.repo = &flakyRepo{Repository: jsonfile.NewInventoryRepository(c.inventoryPath)}
	c.sink = &flakySink{ReportSink: jsonfile.NewReportSink(c.reportPath, dominvoice.PolicyAppend)}
	c.stock = appinv.NewService(c.repo, nil, nil)
	if err := c.stock.Load(context.Background()); err != nil {
		return err
	}
	c.invoices = appinvoice.NewService(memory.NewInvoiceRepository(), c.stock, c.sink, nil, id.NewUUIDGenerator(), nil)
	return nil
}

func (c *bookkeepingContext) ensureStarted() error {
	if c.stock != nil {
		return nil
	}
	return c.start()
}

func (c *bookkeepingContext) aProductWithQuantityAt(name string, qty int, price string) error {
	c.product = dominv.Product{Name: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
	return nil
}

func (c *bookkeepingContext) itsLineTotalIs(want string) error {
	return expectMoney(c.product.LineTotal(), want)
}

func (c *bookkeepingContext) anEmptyInventory() error {
	return c.start()
}

func (c *bookkeepingContext) noInventoryFile() error {
	if _, err := os.Stat(c.inventoryPath); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("expected no file at %s", c.inventoryPath)
	}
	return nil
}

func (c *bookkeepingContext) theApplicationStarts() error {
	return c.start()
}

func (c *bookkeepingContext) iAddToTheInventory(qty int, name, price string) error {
	if err := c.ensureStarted(); err != nil {
		return err
	}
	_, err := c.stock.AddProduct(context.Background(), dominv.Product{Name: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)})
	return err
}

func (c *bookkeepingContext) theInventoryHolds(qty int, name, price string) error {
	return c.iAddToTheInventory(qty, name, price)
}

func (c *bookkeepingContext) anOpenInvoice() error {
	if err := c.ensureStarted(); err != nil {
		return err
	}
	inv, err := c.invoices.Open(context.Background())
	if err != nil {
		return err
	}
	c.invoiceID = inv.ID
	return nil
}

func (c *bookkeepingContext) iAddToTheInvoice(qty int, name string) error {
	_, c.err = c.invoices.AddLine(context.Background(), c.invoiceID, appinvoice.AddLineInput{Name: name, Quantity: qty})
	return nil
}

func (c *bookkeepingContext) iCommitTheInvoice() error {
	_, c.err = c.invoices.Commit(context.Background(), c.invoiceID)
	return nil
}

func (c *bookkeepingContext) savingTheInventoryFails() error {
	c.repo.failSave = true
	return nil
}

func (c *bookkeepingContext) writingTheReportFails() error {
	c.sink.failCommit = true
	return nil
}

func (c *bookkeepingContext) theApplicationRestarts() error {
	return c.start()
}

func (c *bookkeepingContext) theRequestSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *bookkeepingContext) theRequestFailsWith(kind string) error {
	want := map[string]error{
		"not found":          dominv.ErrNotFound,
		"insufficient stock": dominv.ErrInsufficientStock,
		"validation":         dominv.ErrValidation,
		"persistence":        dominv.ErrPersistence,
	}[kind]
	if !errors.Is(c.err, want) {
		return fmt.Errorf("expected %s error, got %v", kind, c.err)
	}
	return nil
}

func (c *bookkeepingContext) theInvoiceHasLines(n int) error {
	inv, err := c.invoices.Get(context.Background(), c.invoiceID)
	if err != nil {
		return err
	}
	if inv.Len() != n {
		return fmt.Errorf("expected %d lines, got %d", n, inv.Len())
	}
	return nil
}

func (c *bookkeepingContext) theInvoiceTotalIs(want string) error {
	total, err := c.invoices.Total(context.Background(), c.invoiceID)
	if err != nil {
		return err
	}
	return expectMoney(total, want)
}

func (c *bookkeepingContext) hasInStock(name string, qty int) error {
	p, ok := c.stock.Find(name)
	if !ok {
		return fmt.Errorf("%s is not in the inventory", name)
	}
	if p.Quantity != qty {
		return fmt.Errorf("expected %d of %s, got %d", qty, name, p.Quantity)
	}
	return nil
}

func (c *bookkeepingContext) hasInStockAt(name string, qty int, price string) error {
	if err := c.hasInStock(name, qty); err != nil {
		return err
	}
	p, _ := c.stock.Find(name)
	return expectMoney(p.UnitPrice, price)
}

func (c *bookkeepingContext) theInventoryHasProducts(n int) error {
	if got := len(c.stock.ListProducts(context.Background())); got != n {
		return fmt.Errorf("expected %d products, got %d", n, got)
	}
	return nil
}

func (c *bookkeepingContext) theInventoryIsEmpty() error {
	return c.theInventoryHasProducts(0)
}

func (c *bookkeepingContext) theReportFileContains(want string) error {
	data, err := os.ReadFile(c.reportPath)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == want {
			return nil
		}
	}
	return fmt.Errorf("report has no line %q:\n%s", want, data)
}

func (c *bookkeepingContext) noReportHasBeenWritten() error {
	data, err := os.ReadFile(c.reportPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) != 0 {
		return fmt.Errorf("expected no report, found:\n%s", data)
	}
	return nil
}

func expectMoney(got decimal.Decimal, want string) error {
	if !got.Equal(decimal.RequireFromString(want)) {
		return fmt.Errorf("expected %s, got %s", want, got.StringFixed(2))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &bookkeepingContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.cleanup()
		return ctx, nil
	})

	ctx.Step(`^a product "([^"]*)" with quantity (\d+) at ([\d.]+)$`, tc.aProductWithQuantityAt)
	ctx.Step(`^its line total is ([\d.]+)$`, tc.itsLineTotalIs)
	ctx.Step(`^an empty inventory$`, tc.anEmptyInventory)
	ctx.Step(`^no inventory file$`, tc.noInventoryFile)
	ctx.Step(`^the application starts$`, tc.theApplicationStarts)
	ctx.Step(`^the application restarts$`, tc.theApplicationRestarts)
	ctx.Step(`^I add (\d+) of "([^"]*)" at ([\d.]+) to the inventory$`, tc.iAddToTheInventory)
	ctx.Step(`^the inventory holds (\d+) of "([^"]*)" at ([\d.]+)$`, tc.theInventoryHolds)
	ctx.Step(`^an open invoice$`, tc.anOpenInvoice)
	ctx.Step(`^I add (\d+) of "([^"]*)" to the invoice$`, tc.iAddToTheInvoice)
	ctx.Step(`^I commit the invoice$`, tc.iCommitTheInvoice)
	ctx.Step(`^saving the inventory fails$`, tc.savingTheInventoryFails)
	ctx.Step(`^writing the report fails$`, tc.writingTheReportFails)
	ctx.Step(`^the request succeeds$`, tc.theRequestSucceeds)
	ctx.Step(`^the request fails with an? (not found|insufficient stock|validation|persistence) error$`, tc.theRequestFailsWith)
	ctx.Step(`^the invoice has (\d+) lines?$`, tc.theInvoiceHasLines)
	ctx.Step(`^the invoice total is ([\d.]+)$`, tc.theInvoiceTotalIs)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, tc.hasInStock)
	ctx.Step(`^"([^"]*)" has (\d+) in stock at ([\d.]+)$`, tc.hasInStockAt)
	ctx.Step(`^the inventory has (\d+) products?$`, tc.theInventoryHasProducts)
	ctx.Step(`^the inventory is empty$`, tc.theInventoryIsEmpty)
	ctx.Step(`^the report file contains "([^"]*)"$`, tc.theReportFileContains)
	ctx.Step(`^no report has been written$`, tc.noReportHasBeenWritten)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"bookkeeping.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
