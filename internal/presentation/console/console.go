// Package console runs the interactive prompt over an input and output stream.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appinv "github.com/Zhima-Mochi/invoicebook/internal/application/inventory"
	appinvoice "github.com/Zhima-Mochi/invoicebook/internal/application/invoice"
	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/presentation/form"
)

type Inventory interface {
	AddProduct(ctx context.Context, p dominv.Product) (dominv.Product, error)
	UpdateProduct(ctx context.Context, in appinv.UpdateProductInput) (dominv.Product, error)
	RemoveProduct(ctx context.Context, name string) error
	GetProduct(ctx context.Context, name string) (dominv.Product, error)
	ListProducts(ctx context.Context) []dominv.Product
}

type Invoices interface {
	Open(ctx context.Context) (*dominvoice.Invoice, error)
	AddLine(ctx context.Context, id string, in appinvoice.AddLineInput) (*dominvoice.Invoice, error)
	Render(ctx context.Context, id string) (string, error)
	Commit(ctx context.Context, id string) (*appinvoice.CommitResult, error)
	Discard(ctx context.Context, id string) error
}

// errInputClosed ends the session when the input runs out mid-prompt.
var errInputClosed = errors.New("console: input closed")

type Console struct {
	in         *bufio.Scanner
	out        io.Writer
	invoices   Invoices
	inventory  Inventory
	reportPath string
}

// New builds a console. A nil inventory selects the basic flow: one invoice, prices typed by hand, no stock.
func New(in io.Reader, out io.Writer, invoices Invoices, inventory Inventory, reportPath string) *Console {
	return &Console{
		in:         bufio.NewScanner(in),
		out:        out,
		invoices:   invoices,
		inventory:  inventory,
		reportPath: reportPath,
	}
}

// Run drives the session until the user quits or input ends.
func (c *Console) Run(ctx context.Context) error {
	var err error
	if c.inventory == nil {
		err = c.runBasic(ctx)
	} else {
		err = c.runMenu(ctx)
	}
	if errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}

func (c *Console) runBasic(ctx context.Context) error {
	c.println("=== Welcome to the Invoice Generator ===")

	inv, err := c.invoices.Open(ctx)
	if err != nil {
		return err
	}
	for {
		if err := c.basicLine(ctx, inv.ID); err != nil {
			if errors.Is(err, errInputClosed) {
				c.discard(ctx, inv.ID)
			}
			return err
		}
		another, err := c.prompt("Add another product? (y/n): ")
		if err != nil {
			c.discard(ctx, inv.ID)
			return err
		}
		if !form.Confirmed(another) {
			break
		}
	}
	return c.commit(ctx, inv.ID)
}

// basicLine prompts until one line lands on the invoice.
func (c *Console) basicLine(ctx context.Context, id string) error {
	for {
		name, err := promptValid(c, "Enter product name: ", form.ParseName)
		if err != nil {
			return err
		}
		qty, err := promptValid(c, "Enter quantity: ", form.ParseQuantity)
		if err != nil {
			return err
		}
		price, err := promptValid(c, "Enter unit price: ", form.ParsePrice)
		if err != nil {
			return err
		}
		if _, err := c.invoices.AddLine(ctx, id, appinvoice.AddLineInput{Name: name, Quantity: qty, UnitPrice: &price}); err != nil {
			c.printf("Could not add product: %s\n", describe(err))
			continue
		}
		return nil
	}
}

const menu = `
=== Invoice Book ===
1) Add product
2) Edit product
3) Remove product
4) List inventory
5) New invoice
6) Quit`

func (c *Console) runMenu(ctx context.Context) error {
	for {
		c.println(menu)
		choice, err := c.prompt("Choose an option: ")
		if err != nil {
			return err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			err = c.addProduct(ctx)
		case "2":
			err = c.editProduct(ctx)
		case "3":
			err = c.removeProduct(ctx)
		case "4":
			c.listInventory(ctx)
		case "5":
			err = c.newInvoice(ctx)
		case "6", "q", "quit":
			c.println("Goodbye.")
			return nil
		default:
			c.println("Unknown option.")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) addProduct(ctx context.Context) error {
	name, err := promptValid(c, "Enter product name: ", form.ParseName)
	if err != nil {
		return err
	}
	qty, err := promptValid(c, "Enter quantity: ", form.ParseQuantity)
	if err != nil {
		return err
	}
	price, err := promptValid(c, "Enter unit price: ", form.ParsePrice)
	if err != nil {
		return err
	}
	stored, err := c.inventory.AddProduct(ctx, dominv.Product{Name: name, Quantity: qty, UnitPrice: price})
	if err != nil {
		c.printf("Could not add product: %s\n", describe(err))
		return nil
	}
	c.printf("%s now has %d in stock at %s.\n", stored.Name, stored.Quantity, stored.UnitPrice.StringFixed(2))
	return nil
}

func (c *Console) editProduct(ctx context.Context) error {
	name, err := promptValid(c, "Enter product name: ", form.ParseName)
	if err != nil {
		return err
	}
	current, err := c.inventory.GetProduct(ctx, name)
	if err != nil {
		c.printf("Could not edit product: %s\n", describe(err))
		return nil
	}
	c.printf("Current: %d in stock at %s.\n", current.Quantity, current.UnitPrice.StringFixed(2))

	qty, err := promptValid(c, "Enter new quantity: ", form.ParseQuantity)
	if err != nil {
		return err
	}
	price, err := promptValid(c, "Enter new unit price: ", form.ParsePrice)
	if err != nil {
		return err
	}
	if _, err := c.inventory.UpdateProduct(ctx, appinv.UpdateProductInput{Name: name, Quantity: qty, UnitPrice: price}); err != nil {
		c.printf("Could not edit product: %s\n", describe(err))
		return nil
	}
	c.printf("%s updated.\n", name)
	return nil
}

func (c *Console) removeProduct(ctx context.Context) error {
	name, err := promptValid(c, "Enter product name: ", form.ParseName)
	if err != nil {
		return err
	}
	if err := c.inventory.RemoveProduct(ctx, name); err != nil {
		c.printf("Could not remove product: %s\n", describe(err))
		return nil
	}
	c.printf("%s removed.\n", name)
	return nil
}

func (c *Console) listInventory(ctx context.Context) {
	products := c.inventory.ListProducts(ctx)
	if len(products) == 0 {
		c.println("Inventory is empty.")
		return
	}
	c.printf("%-15s%-5s%s\n", "Product", "Qty", "Unit Price")
	for _, p := range products {
		c.printf("%-15s%-5d%s\n", p.Name, p.Quantity, p.UnitPrice.StringFixed(2))
	}
}

func (c *Console) newInvoice(ctx context.Context) error {
	inv, err := c.invoices.Open(ctx)
	if err != nil {
		return err
	}
	lines := 0
	for {
		name, err := c.prompt("Enter product name (blank to finish): ")
		if err != nil {
			c.discard(ctx, inv.ID)
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			break
		}
		qty, err := promptValid(c, "Enter quantity: ", form.ParseQuantity)
		if err != nil {
			c.discard(ctx, inv.ID)
			return err
		}
		if _, err := c.invoices.AddLine(ctx, inv.ID, appinvoice.AddLineInput{Name: name, Quantity: qty}); err != nil {
			c.printf("Could not add product: %s\n", describe(err))
			continue
		}
		lines++
	}

	if lines == 0 {
		c.println("Invoice is empty; nothing to commit.")
		c.discard(ctx, inv.ID)
		return nil
	}

	preview, err := c.invoices.Render(ctx, inv.ID)
	if err != nil {
		return err
	}
	c.println()
	c.println(preview)
	confirm, err := c.prompt("Commit invoice? (y/n): ")
	if err != nil {
		c.discard(ctx, inv.ID)
		return err
	}
	if !form.Confirmed(confirm) {
		c.println("Invoice discarded.")
		c.discard(ctx, inv.ID)
		return nil
	}
	return c.commit(ctx, inv.ID)
}

func (c *Console) commit(ctx context.Context, id string) error {
	res, err := c.invoices.Commit(ctx, id)
	if err != nil {
		c.printf("Error saving invoice: %s\n", describe(err))
		return nil
	}
	c.println("\nGenerated Invoice:")
	c.println()
	c.println(res.Report)
	c.printf("Invoice saved to %s\n", c.reportPath)
	return nil
}

func (c *Console) discard(ctx context.Context, id string) {
	_ = c.invoices.Discard(ctx, id)
}

func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return c.in.Text(), nil
}

// promptValid repeats label until parse accepts the answer.
func promptValid[T any](c *Console, label string, parse func(string) (T, error)) (T, error) {
	for {
		raw, err := c.prompt(label)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(raw)
		if err == nil {
			return v, nil
		}
		c.printf("Invalid input: %s\n", describe(err))
	}
}

func (c *Console) println(a ...any) { fmt.Fprintln(c.out, a...) }

func (c *Console) printf(format string, a ...any) { fmt.Fprintf(c.out, format, a...) }

func describe(err error) string {
	var fe *form.Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return err.Error()
}
