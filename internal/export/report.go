package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// Report summarizes directory data quality after a run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id,omitempty"`
	Total       int       `json:"total"`
	Suppliers   int       `json:"suppliers"`
	Events      int       `json:"events"`

	// Confidence bands: high >= 0.8, medium >= 0.6, low < 0.6.
	High   int `json:"high_confidence"`
	Medium int `json:"medium_confidence"`
	Low    int `json:"low_confidence"`

	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`

	Regions       map[string]int `json:"regions"`
	UnknownRegion int            `json:"unknown_region"`

	WithPhone    int `json:"with_phone"`
	WithWhatsApp int `json:"with_whatsapp"`
	WithEmail    int `json:"with_email"`
	WithWebsite  int `json:"with_website"`
	NoContact    int `json:"no_contact"`
}

// BuildReport computes the quality report over a record snapshot. run may
// be nil.
func BuildReport(records []model.CanonicalRecord, run *model.Run) *Report {
	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Total:       len(records),
		Regions:     make(map[string]int),
	}
	if run != nil {
		rep.RunID = run.ID
	}

	for i := range records {
		r := &records[i]
		switch r.Kind {
		case model.KindEvent:
			rep.Events++
		default:
			rep.Suppliers++
		}

		switch {
		case r.Confidence >= 0.8:
			rep.High++
		case r.Confidence >= 0.6:
			rep.Medium++
		default:
			rep.Low++
		}

		switch r.ApprovalStatus {
		case model.ApprovalApproved:
			rep.Approved++
		case model.ApprovalRejected:
			rep.Rejected++
		default:
			rep.Pending++
		}

		if r.Region == "" {
			rep.UnknownRegion++
		} else {
			rep.Regions[r.Region]++
		}

		if len(r.Phones) > 0 {
			rep.WithPhone++
		}
		if len(r.WhatsApp) > 0 {
			rep.WithWhatsApp++
		}
		if len(r.Emails) > 0 {
			rep.WithEmail++
		}
		if len(r.Websites) > 0 {
			rep.WithWebsite++
		}
		if !r.HasContact() {
			rep.NoContact++
		}
	}
	return rep
}

// Render formats the report as plain text.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory quality report %s\n", r.GeneratedAt.Format(time.RFC3339))
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	}
	fmt.Fprintf(&b, "\nRecords: %d (%d suppliers, %d events)\n", r.Total, r.Suppliers, r.Events)

	fmt.Fprintf(&b, "\nConfidence bands\n")
	fmt.Fprintf(&b, "  high   (>= 0.80): %4d %s\n", r.High, pct(r.High, r.Total))
	fmt.Fprintf(&b, "  medium (>= 0.60): %4d %s\n", r.Medium, pct(r.Medium, r.Total))
	fmt.Fprintf(&b, "  low    (<  0.60): %4d %s\n", r.Low, pct(r.Low, r.Total))

	fmt.Fprintf(&b, "\nApproval\n")
	fmt.Fprintf(&b, "  approved: %4d\n  pending:  %4d\n  rejected: %4d\n",
		r.Approved, r.Pending, r.Rejected)

	fmt.Fprintf(&b, "\nRegion coverage\n")
	regions := make([]string, 0, len(r.Regions))
	for region := range r.Regions {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool {
		if r.Regions[regions[i]] != r.Regions[regions[j]] {
			return r.Regions[regions[i]] > r.Regions[regions[j]]
		}
		return regions[i] < regions[j]
	})
	for _, region := range regions {
		fmt.Fprintf(&b, "  %-12s %4d\n", region, r.Regions[region])
	}
	if r.UnknownRegion > 0 {
		fmt.Fprintf(&b, "  %-12s %4d\n", "(unknown)", r.UnknownRegion)
	}

	fmt.Fprintf(&b, "\nContact coverage\n")
	fmt.Fprintf(&b, "  phone:    %4d %s\n", r.WithPhone, pct(r.WithPhone, r.Total))
	fmt.Fprintf(&b, "  whatsapp: %4d %s\n", r.WithWhatsApp, pct(r.WithWhatsApp, r.Total))
	fmt.Fprintf(&b, "  email:    %4d %s\n", r.WithEmail, pct(r.WithEmail, r.Total))
	fmt.Fprintf(&b, "  website:  %4d %s\n", r.WithWebsite, pct(r.WithWebsite, r.Total))
	fmt.Fprintf(&b, "  none:     %4d %s\n", r.NoContact, pct(r.NoContact, r.Total))

	return b.String()
}

// WriteReport renders the report to a text file.
func WriteReport(path string, rep *Report) error {
	if err := os.WriteFile(path, []byte(rep.Render()), 0o644); err != nil {
		return eris.Wrapf(err, "export: write report %s", path)
	}
	return nil
}

func pct(n, total int) string {
	if total == 0 {
		return "(0%)"
	}
	return fmt.Sprintf("(%.0f%%)", float64(n)*100/float64(total))
}
