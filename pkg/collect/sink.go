package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vkdumper/pkg/logger"
	"vkdumper/pkg/storage"
)

// NoFileRecord describes an attachment that has no retrievable binary
type NoFileRecord struct {
	ParentKind string
	ParentID   int
	Kind       string
	Text       string
}

// NoFileSink accumulates no-file records over an entire classification pass
// and persists them once at the end. There is no incremental flush.
type NoFileSink struct {
	log     logger.Logger
	records []NoFileRecord
}

// NewNoFileSink creates an empty sink
func NewNoFileSink(log logger.Logger) *NoFileSink {
	if log == nil {
		log = logger.GetLogger()
	}
	return &NoFileSink{log: log}
}

// Add appends one record
func (s *NoFileSink) Add(record NoFileRecord) {
	s.records = append(s.records, record)
}

// AddAll appends a batch of records
func (s *NoFileSink) AddAll(records []NoFileRecord) {
	s.records = append(s.records, records...)
}

// Len returns the number of accumulated records
func (s *NoFileSink) Len() int {
	return len(s.records)
}

// Flush writes all accumulated records as tab separated lines into the
// owner's data directory
func (s *NoFileSink) Flush(ownerDir string) error {
	out := filepath.Join(ownerDir, storage.NoFileReportName)

	var b strings.Builder
	for _, r := range s.records {
		fmt.Fprintf(&b, "%s\t%d\t%s\t%s\n", r.ParentKind, r.ParentID, r.Kind, r.Text)
	}

	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write no-file attachment report: %w", err)
	}

	s.log.InfoWithFields("no-file attachment report saved", map[string]interface{}{
		"path":    out,
		"records": len(s.records),
	})
	return nil
}
