package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// csvColumns defines the fixed CSV column order.
var csvColumns = []string{
	"stable_id",
	"kind",
	"name",
	"alt_names",
	"region",
	"locality",
	"address",
	"categories",
	"phones",
	"whatsapp",
	"emails",
	"websites",
	"coverage_regions",
	"trade_language",
	"has_moq",
	"registration",
	"confidence",
	"approval_status",
	"start_date",
	"end_date",
	"source_platform",
	"source_url",
	"first_seen_at",
	"last_seen_at",
}

// WriteCSV writes the record set with a fixed column order. encoding/csv
// doubles embedded quotes; embedded newlines are collapsed to spaces so
// each record stays on one physical line.
func WriteCSV(path string, records []model.CanonicalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range records {
		if err := w.Write(buildCSVRow(&records[i])); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", records[i].StableID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return f.Close()
}

func buildCSVRow(r *model.CanonicalRecord) []string {
	return []string{
		r.StableID,
		string(r.Kind),
		collapse(r.Name),
		joinList(r.AltNames),
		r.Region,
		r.Locality,
		collapse(r.AddressText),
		joinList(r.Categories),
		joinList(r.Phones),
		joinList(r.WhatsApp),
		joinList(r.Emails),
		joinList(r.Websites),
		joinList(r.CoverageRegions),
		fmt.Sprintf("%t", r.TradeLanguage),
		fmt.Sprintf("%t", r.HasMOQ),
		collapse(r.Registration),
		fmt.Sprintf("%.2f", r.Confidence),
		string(r.ApprovalStatus),
		formatDate(r.StartDate),
		formatDate(r.EndDate),
		collapse(r.SourcePlatform),
		r.SourceURL,
		r.FirstSeenAt.UTC().Format(time.RFC3339),
		r.LastSeenAt.UTC().Format(time.RFC3339),
	}
}

// collapse replaces embedded newlines with single spaces.
func collapse(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.Join(strings.Fields(s), " ")
}

func joinList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	cleaned := make([]string, len(values))
	for i, v := range values {
		cleaned[i] = collapse(v)
	}
	return strings.Join(cleaned, "; ")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
