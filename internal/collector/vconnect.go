package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/fetcher"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// vconnectPaths are the directory category pages crawled for suppliers.
var vconnectPaths = []string{
	"/lagos/party-equipment-rentals",
	"/nigeria/event-equipment-suppliers",
}

// VConnect collects supplier listings from the VConnect business directory
// HTML pages.
type VConnect struct {
	BaseURL string
	Client  *fetcher.Client
}

// Platform implements Collector.
func (v *VConnect) Platform() string { return "vconnect" }

// Collect implements Collector.
func (v *VConnect) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	for _, path := range vconnectPaths {
		url := v.BaseURL + path

		body, err := v.Client.Get(ctx, url)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("page %s: %v", path, err))
			continue
		}

		cands, errs := v.parsePage(body, url)
		res.Candidates = append(res.Candidates, cands...)
		res.Errors = append(res.Errors, errs...)
	}

	res.ElapsedMS = time.Since(start).Milliseconds()
	if len(res.Candidates) == 0 && len(res.Errors) > 0 {
		return nil, eris.Errorf("vconnect: all %d pages failed", len(vconnectPaths))
	}
	return res, nil
}

// parsePage extracts listing cards from one directory page.
func (v *VConnect) parsePage(body []byte, pageURL string) ([]model.RawCandidate, []string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, []string{fmt.Sprintf("parse %s: %v", pageURL, err)}
	}

	var cands []model.RawCandidate
	var errs []string

	doc.Find("div.listing-card").Each(func(i int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find("h3.listing-name a").Text())
		if name == "" {
			errs = append(errs, fmt.Sprintf("card %d on %s: missing name", i, pageURL))
			return
		}

		href, _ := s.Find("h3.listing-name a").Attr("href")
		sourceURL := href
		if sourceURL == "" {
			sourceURL = pageURL
		} else if strings.HasPrefix(sourceURL, "/") {
			sourceURL = v.BaseURL + sourceURL
		}

		cand := model.RawCandidate{
			Kind:           model.KindSupplier,
			Name:           name,
			AddressText:    strings.TrimSpace(s.Find("span.listing-address").Text()),
			ProductText:    strings.TrimSpace(s.Find("p.listing-services").Text()),
			HoursText:      strings.TrimSpace(s.Find("span.listing-hours").Text()),
			SourcePlatform: v.Platform(),
			SourceURL:      sourceURL,
		}

		if phone := strings.TrimSpace(s.Find("a.listing-phone").Text()); phone != "" {
			cand.Phones = []string{phone}
		}
		if email := strings.TrimSpace(s.Find("a.listing-email").Text()); email != "" {
			cand.Emails = []string{email}
		}
		if site, ok := s.Find("a.listing-website").Attr("href"); ok {
			cand.Websites = []string{site}
		}

		cands = append(cands, cand)
	})

	return cands, errs
}
