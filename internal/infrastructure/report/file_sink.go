package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"HKNewsDigest/internal/ports"
)

// FileSink writes the digest to a local HTML file named by run date. It is
// the default when email delivery is disabled.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

var _ ports.ReportSink = (*FileSink)(nil)

// NewFileSink writes reports under dir, defaulting to the working directory.
func NewFileSink(dir string, logger *slog.Logger) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir, logger: logger}
}

// Deliver writes report_YYYYMMDD.html.
func (s *FileSink) Deliver(ctx context.Context, runDate time.Time, report ports.RenderedReport) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("report_%s.html", runDate.Format("20060102")))
	if err := os.WriteFile(path, []byte(report.HTML), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Info("digest written", "path", path)
	}
	return nil
}
