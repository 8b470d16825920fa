package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/fetcher"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// jiji search categories crawled for event-equipment wholesale listings.
var jijiQueries = []string{
	"party-wedding-equipment",
	"sound-system-equipment",
	"canopies-tents",
}

// Jiji collects supplier listings from the Jiji marketplace search API.
type Jiji struct {
	BaseURL string
	Client  *fetcher.Client
}

// jijiResponse mirrors the slice of the listing payload the collector reads.
type jijiResponse struct {
	Adverts struct {
		List []jijiAdvert `json:"list"`
	} `json:"adverts"`
}

type jijiAdvert struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Region      string  `json:"region_name"`
	URL         string  `json:"url"`
	Phone       string  `json:"phone"`
	UserPhone   string  `json:"user_phone"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	DateCreated string  `json:"date_created"`
}

// Platform implements Collector.
func (j *Jiji) Platform() string { return "jiji" }

// Collect implements Collector. Each category query fetches one page of
// listings; a failed query is recorded and the rest continue.
func (j *Jiji) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	for _, q := range jijiQueries {
		url := fmt.Sprintf("%s/api_web/v1/listing?slug=%s", j.BaseURL, q)

		var page jijiResponse
		if err := j.Client.GetJSON(ctx, url, &page); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("query %s: %v", q, err))
			continue
		}

		for _, ad := range page.Adverts.List {
			cand, err := j.candidate(ad)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("advert %d: %v", ad.ID, err))
				continue
			}
			res.Candidates = append(res.Candidates, cand)
		}
	}

	res.ElapsedMS = time.Since(start).Milliseconds()
	if len(res.Candidates) == 0 && len(res.Errors) > 0 {
		return nil, eris.Errorf("jiji: all %d queries failed", len(jijiQueries))
	}
	return res, nil
}

func (j *Jiji) candidate(ad jijiAdvert) (model.RawCandidate, error) {
	if ad.Title == "" {
		return model.RawCandidate{}, eris.New("advert has no title")
	}
	url := ad.URL
	if url == "" {
		url = fmt.Sprintf("%s/adverts/%d", j.BaseURL, ad.ID)
	}

	var phones []string
	if ad.Phone != "" {
		phones = append(phones, ad.Phone)
	}
	if ad.UserPhone != "" {
		phones = append(phones, ad.UserPhone)
	}

	cand := model.RawCandidate{
		Kind:           model.KindSupplier,
		Name:           ad.Title,
		RegionText:     ad.Region,
		AddressText:    ad.Region,
		Phones:         phones,
		ProductText:    ad.Description,
		SourcePlatform: j.Platform(),
		SourceURL:      url,
	}

	if ad.RatingCount > 0 {
		cand.Ratings = map[string]model.Rating{
			"jiji": {Average: ad.Rating, Count: ad.RatingCount},
		}
	}
	if t, err := time.Parse("2006-01-02T15:04:05", ad.DateCreated); err == nil {
		cand.ObservedAt = &t
	}

	return cand, nil
}
