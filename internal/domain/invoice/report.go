package invoice

import (
	"fmt"
	"strings"
	"time"
)

const (
	reportBanner    = "========== INVOICE =========="
	reportRule      = "------------------------------"
	reportFooter    = "=============================="
	reportTimestamp = "2006-01-02 15:04:05"
)

// Render formats inv as a fixed-width text block stamped with now.
func Render(inv *Invoice, now time.Time) string {
	var b strings.Builder
	b.WriteString(reportBanner + "\n")
	if inv.ID != "" {
		fmt.Fprintf(&b, "Invoice: %s\n", inv.ID)
	}
	fmt.Fprintf(&b, "Date: %s\n", now.Format(reportTimestamp))
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "%-15s%-5s%-12s%s\n", "Product", "Qty", "Unit Price", "Total")
	b.WriteString(reportRule + "\n")
	for _, l := range inv.lines {
		fmt.Fprintf(&b, "%-15s%-5d%-12s%s\n", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Grand Total: $%s\n", inv.Total().StringFixed(2))
	b.WriteString(reportFooter)
	return b.String()
}
