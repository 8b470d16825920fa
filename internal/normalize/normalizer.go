// Package normalize turns raw source-reported listings into canonical
// directory records: contact and region canonicalization, categorization,
// trade-language detection, confidence scoring, and stable identity hashing.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// Sentinels used in the stable-identity hash when a field is absent, so that
// "no phone" hashes differently from an empty string accident.
const (
	noPhone  = "no-phone"
	noRegion = "no-region"
)

// stableIDHexLen is the hex prefix length of the SHA-256 identity digest.
// Must never change: stable IDs are the store's upsert keys.
const stableIDHexLen = 16

// Normalizer converts RawCandidates into CanonicalRecords. Thresholds and
// score increments come from the config so tests can override them.
type Normalizer struct {
	cfg config.NormalizeConfig
	now func() time.Time
}

// New creates a Normalizer with the given scoring configuration.
func New(cfg config.NormalizeConfig) *Normalizer {
	return &Normalizer{cfg: cfg, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// StableID computes the deterministic identity hash for a record: SHA-256 of
// the pipe-joined, lower-cased (name, primary phone, region), with sentinel
// values for absent fields, truncated to a fixed-length hex prefix.
func StableID(name, primaryPhone, region string) string {
	if primaryPhone == "" {
		primaryPhone = noPhone
	}
	if region == "" {
		region = noRegion
	}
	key := strings.ToLower(name) + "|" + strings.ToLower(primaryPhone) + "|" + strings.ToLower(region)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:stableIDHexLen]
}

// Normalize converts one raw candidate into a canonical record. It returns
// an error only for validation failures (empty name or source URL); the
// caller drops and counts the single offending candidate.
func (n *Normalizer) Normalize(raw model.RawCandidate) (*model.CanonicalRecord, error) {
	name := strings.Join(strings.Fields(raw.Name), " ")
	if name == "" {
		return nil, eris.New("normalize: candidate has empty name")
	}
	if strings.TrimSpace(raw.SourceURL) == "" {
		return nil, eris.New("normalize: candidate has empty source url")
	}

	kind := raw.Kind
	if kind == "" {
		kind = model.KindSupplier
	}

	phones := Phones(raw.Phones)
	whatsapp := Phones(raw.WhatsApp)
	emails := Emails(raw.Emails)
	websites := Websites(raw.Websites)
	region := Region(raw.RegionText, raw.AddressText)
	locality := Locality(raw.AddressText)
	categories := Categories(name, raw.ProductText, raw.Notes)

	sig := DetectTradeSignals(n.cfg.TradeDetectCutoff, n.cfg.MaxEvidence,
		name, raw.ProductText, raw.Notes)

	now := n.now().UTC()
	observed := now
	if raw.ObservedAt != nil {
		observed = raw.ObservedAt.UTC()
	}

	rec := &model.CanonicalRecord{
		Kind:            kind,
		Name:            name,
		Region:          region,
		Locality:        locality,
		AddressText:     strings.TrimSpace(raw.AddressText),
		HoursText:       strings.TrimSpace(raw.HoursText),
		Categories:      categories,
		ProductExamples: DedupStrings(strings.Split(raw.ProductText, ",")),
		Phones:          phones,
		WhatsApp:        whatsapp,
		Emails:          emails,
		Websites:        websites,
		SocialHandles:   DedupStrings(raw.SocialHandles),
		DeliveryOptions: DedupStrings(strings.Split(raw.DeliveryText, ",")),
		Ratings:         raw.Ratings,
		TradeLanguage:   sig.Detected,
		HasMOQ:          sig.HasMOQ,
		Evidence:        sig.Evidence,
		Registration:    strings.TrimSpace(raw.Registration),
		StartDate:       raw.StartDate,
		EndDate:         raw.EndDate,
		SourcePlatform:  raw.SourcePlatform,
		SourceURL:       raw.SourceURL,
		FirstSeenAt:     observed,
		LastSeenAt:      observed,
		UpdatedAt:       now,
	}

	primaryPhone := ""
	if len(phones) > 0 {
		primaryPhone = phones[0]
	}
	rec.StableID = StableID(name, primaryPhone, region)

	rec.Confidence = n.score(rec)
	if rec.Confidence >= n.cfg.ApprovalThreshold {
		rec.ApprovalStatus = model.ApprovalApproved
	} else {
		rec.ApprovalStatus = model.ApprovalPending
	}

	return rec, nil
}

// score derives the heuristic data-quality confidence for a record.
func (n *Normalizer) score(rec *model.CanonicalRecord) float64 {
	s := n.cfg.BaseScore

	if rec.TradeLanguage {
		s += n.cfg.TradeLanguageBonus
	}
	if rec.HasMOQ {
		s += n.cfg.MOQBonus
	}
	if len(rec.Phones) > 0 {
		s += n.cfg.PhoneBonus
	}
	if len(rec.WhatsApp) > 0 {
		s += n.cfg.WhatsAppBonus
	}
	if len(rec.Emails) > 0 {
		s += n.cfg.EmailBonus
	}
	if rec.Region != "" {
		s += n.cfg.RegionBonus
	}
	if rec.Registration != "" {
		s += n.cfg.RegistrationBonus
	}
	if len(rec.Categories) >= 2 {
		s += n.cfg.CategoriesBonus
	}
	if len(rec.Evidence) == 0 {
		s -= n.cfg.NoTradeTermPenalty
	}

	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
