package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
)

// ReportSink accumulates reports in memory under a WritePolicy.
// StageErr and CommitErr inject failures into the two phases.
type ReportSink struct {
	mu        sync.Mutex
	policy    invoice.WritePolicy
	content   string
	StageErr  error
	CommitErr error
}

func NewReportSink(policy invoice.WritePolicy) *ReportSink {
	if policy == "" {
		policy = invoice.PolicyAppend
	}
	return &ReportSink{policy: policy}
}

func (s *ReportSink) Stage(ctx context.Context, report string) (invoice.StagedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StageErr != nil {
		return nil, s.StageErr
	}
	return &stagedReport{sink: s, report: report}, nil
}

// Content returns everything committed so far.
func (s *ReportSink) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

type stagedReport struct {
	sink   *ReportSink
	report string
}

func (r *stagedReport) Commit() error {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	if r.sink.CommitErr != nil {
		return r.sink.CommitErr
	}
	r.sink.content = r.sink.policy.Compose(r.sink.content, r.report)
	return nil
}

func (r *stagedReport) Discard() error { return nil }
