package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	"github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
)

// ReportSink writes invoice reports to a plain-text file under a WritePolicy.
// Staging writes the complete new file content to a temp file; Commit renames it into place.
type ReportSink struct {
	path   string
	policy invoice.WritePolicy
	// one staged report at a time, so an append never races another append
	mu sync.Mutex
}

// NewReportSink normalizes policy; an empty or unrecognized value means append.
func NewReportSink(path string, policy invoice.WritePolicy) *ReportSink {
	p, err := invoice.ParseWritePolicy(string(policy))
	if err != nil {
		p = invoice.PolicyAppend
	}
	return &ReportSink{path: path, policy: p}
}

func (s *ReportSink) Policy() invoice.WritePolicy { return s.policy }

func (s *ReportSink) Stage(ctx context.Context, report string) (invoice.StagedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()

	existing := ""
	if s.policy == invoice.PolicyAppend {
		data, err := os.ReadFile(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: read %s: %w", inventory.ErrPersistence, s.path, err)
		}
		existing = string(data)
	}

	tmp, err := writeTemp(s.path, []byte(s.policy.Compose(existing, report)))
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: stage %s: %w", inventory.ErrPersistence, s.path, err)
	}
	return &stagedFile{sink: s, tmp: tmp}, nil
}

type stagedFile struct {
	sink *ReportSink
	tmp  string
	once sync.Once
}

func (f *stagedFile) Commit() error {
	err := errors.New("report: already finished")
	f.once.Do(func() {
		defer f.sink.mu.Unlock()
		err = nil
		if renameErr := os.Rename(f.tmp, f.sink.path); renameErr != nil {
			_ = os.Remove(f.tmp)
			err = fmt.Errorf("%w: commit %s: %w", inventory.ErrPersistence, f.sink.path, renameErr)
		}
	})
	return err
}

func (f *stagedFile) Discard() error {
	var err error
	f.once.Do(func() {
		defer f.sink.mu.Unlock()
		if rmErr := os.Remove(f.tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}
