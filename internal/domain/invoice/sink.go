package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
)

// WritePolicy decides what a report sink does with earlier reports.
type WritePolicy string

const (
	// PolicyAppend keeps every report, separated by a blank line. The sink grows without bound.
	PolicyAppend WritePolicy = "append"
	// PolicyOverwrite keeps only the latest report.
	PolicyOverwrite WritePolicy = "overwrite"
)

func ParseWritePolicy(s string) (WritePolicy, error) {
	switch p := WritePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAppend, PolicyOverwrite:
		return p, nil
	default:
		return "", fmt.Errorf("%w: invoice: unknown report policy %q", inventory.ErrValidation, s)
	}
}

// Compose returns the sink content after adding report to existing under policy.
func (p WritePolicy) Compose(existing, report string) string {
	if p == PolicyOverwrite || existing == "" {
		return report + "\n"
	}
	return strings.TrimRight(existing, "\n") + "\n\n" + report + "\n"
}

// ReportSink stores rendered reports in two phases so a commit can be abandoned after staging.
type ReportSink interface {
	Stage(ctx context.Context, report string) (StagedReport, error)
}

// StagedReport is a written but not yet visible report. Exactly one of Commit or Discard should be called.
type StagedReport interface {
	Commit() error
	Discard() error
}
