// Package export serializes the canonical record set to snapshot artifacts:
// a JSONL file, a CSV file, and a human-readable quality report per run.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

// exportLimit caps one snapshot read. The directory is far smaller in
// practice.
const exportLimit = 100000

// Exporter writes snapshot artifacts from the store.
type Exporter struct {
	store store.Store
	dir   string
}

// New creates an Exporter writing into the configured directory.
func New(st store.Store, cfg config.ExportConfig) *Exporter {
	return &Exporter{store: st, dir: cfg.Dir}
}

// Export writes the JSONL, CSV, and report artifacts for one finished run.
func (e *Exporter) Export(ctx context.Context, run *model.Run) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir %s", e.dir)
	}

	records, err := e.store.ListRecords(ctx, store.RecordFilter{Limit: exportLimit})
	if err != nil {
		return eris.Wrap(err, "export: list records")
	}

	stem := fmt.Sprintf("directory_%s", run.StartedAt.UTC().Format("20060102_150405"))

	jsonlPath := filepath.Join(e.dir, stem+".jsonl")
	if err := WriteJSONL(jsonlPath, records); err != nil {
		return err
	}
	csvPath := filepath.Join(e.dir, stem+".csv")
	if err := WriteCSV(csvPath, records); err != nil {
		return err
	}
	reportPath := filepath.Join(e.dir, stem+"_report.txt")
	if err := WriteReport(reportPath, BuildReport(records, run)); err != nil {
		return err
	}

	zap.L().Info("export: snapshot written",
		zap.Int("records", len(records)),
		zap.String("jsonl", jsonlPath),
		zap.String("csv", csvPath),
		zap.String("report", reportPath),
	)
	return nil
}
