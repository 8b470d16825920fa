// Package model defines the canonical record types shared across the
// directory refresh pipeline.
package model

import "time"

// RecordKind distinguishes suppliers (open-ended) from ceremonial events
// (time-bound, subject to the retention sweep).
type RecordKind string

const (
	KindSupplier RecordKind = "supplier"
	KindEvent    RecordKind = "event"
)

// ApprovalStatus is derived from the confidence score at normalization time
// and mutable afterwards only through human review.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// RawCandidate is one source-reported listing before normalization.
// It is never persisted; the normalizer consumes it immediately.
type RawCandidate struct {
	Kind          RecordKind `json:"kind"`
	Name          string     `json:"name"`
	RegionText    string     `json:"region_text,omitempty"`
	AddressText   string     `json:"address_text,omitempty"`
	Phones        []string   `json:"phones,omitempty"`
	WhatsApp      []string   `json:"whatsapp,omitempty"`
	Emails        []string   `json:"emails,omitempty"`
	Websites      []string   `json:"websites,omitempty"`
	SocialHandles []string   `json:"social_handles,omitempty"`
	ProductText   string     `json:"product_text,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	HoursText     string     `json:"hours_text,omitempty"`
	DeliveryText  string     `json:"delivery_text,omitempty"`
	Registration  string     `json:"registration,omitempty"`

	Ratings map[string]Rating `json:"ratings,omitempty"`

	// Event-only fields.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	SourcePlatform string     `json:"source_platform"`
	SourceURL      string     `json:"source_url"`
	ObservedAt     *time.Time `json:"observed_at,omitempty"`
}

// Rating is an aggregate rating as reported by one rating source.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Evidence is a snippet of source text that matched a trade-language pattern.
type Evidence struct {
	Label   string `json:"label"`
	Snippet string `json:"snippet"`
}

// CanonicalRecord is the deduplicated, normalized representation of one
// real-world entity. StableID is the upsert key.
type CanonicalRecord struct {
	StableID string     `json:"stable_id"`
	Kind     RecordKind `json:"kind"`

	Name        string   `json:"name"`
	AltNames    []string `json:"alt_names,omitempty"`
	Region      string   `json:"region,omitempty"`
	Locality    string   `json:"locality,omitempty"`
	AddressText string   `json:"address_text,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	HoursText   string   `json:"hours_text,omitempty"`

	Categories      []string `json:"categories,omitempty"`
	ProductExamples []string `json:"product_examples,omitempty"`
	Phones          []string `json:"phones,omitempty"`
	WhatsApp        []string `json:"whatsapp,omitempty"`
	Emails          []string `json:"emails,omitempty"`
	Websites        []string `json:"websites,omitempty"`
	SocialHandles   []string `json:"social_handles,omitempty"`
	CoverageRegions []string `json:"coverage_regions,omitempty"`
	DeliveryOptions []string `json:"delivery_options,omitempty"`

	Ratings map[string]Rating `json:"ratings,omitempty"`

	TradeLanguage bool       `json:"trade_language"`
	HasMOQ        bool       `json:"has_moq"`
	Evidence      []Evidence `json:"evidence,omitempty"`
	Registration  string     `json:"registration,omitempty"`

	Confidence     float64        `json:"confidence"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	IsBlacklisted  bool           `json:"is_blacklisted"`

	// Event-only fields; nil for suppliers.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Provenance. SourcePlatform becomes a pipe-joined list after merges.
	SourcePlatform string    `json:"source_platform"`
	SourceURL      string    `json:"source_url"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EffectiveDate returns the date the retention sweep judges an event by:
// the end date when present, else the start date. Returns nil for records
// with no notion of a date (suppliers).
func (r *CanonicalRecord) EffectiveDate() *time.Time {
	if r.EndDate != nil {
		return r.EndDate
	}
	return r.StartDate
}

// HasContact reports whether the record carries at least one contact field.
func (r *CanonicalRecord) HasContact() bool {
	return len(r.Phones) > 0 || len(r.WhatsApp) > 0 || len(r.Emails) > 0
}
