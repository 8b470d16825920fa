package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/partybase-ng/directory-cli/internal/fetcher"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// AllEvents collects upcoming ceremonial events (weddings fairs, trade
// shows, festivals) from the AllEvents feed. Event records are time-bound
// and subject to the retention sweep.
type AllEvents struct {
	BaseURL string
	Client  *fetcher.Client
}

type allEventsFeed struct {
	Events []allEventsItem `json:"events"`
}

type allEventsItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Venue     string `json:"venue"`
	City      string `json:"city"`
	State     string `json:"state"`
	Category  string `json:"category"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	URL       string `json:"url"`
	Organizer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"organizer"`
}

// Platform implements Collector.
func (a *AllEvents) Platform() string { return "allevents" }

// Collect implements Collector.
func (a *AllEvents) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	var feed allEventsFeed
	if err := a.Client.GetJSON(ctx, a.BaseURL+"/v1/events?country=ng&category=ceremonial", &feed); err != nil {
		return nil, err
	}

	for _, ev := range feed.Events {
		cand, ok := a.candidate(ev, res)
		if !ok {
			continue
		}
		res.Candidates = append(res.Candidates, cand)
	}

	res.ElapsedMS = time.Since(start).Milliseconds()
	return res, nil
}

func (a *AllEvents) candidate(ev allEventsItem, res *Result) (model.RawCandidate, bool) {
	if ev.Title == "" || ev.URL == "" {
		res.Errors = append(res.Errors, fmt.Sprintf("event %s: missing title or url", ev.ID))
		return model.RawCandidate{}, false
	}

	cand := model.RawCandidate{
		Kind:           model.KindEvent,
		Name:           ev.Title,
		RegionText:     ev.State,
		AddressText:    ev.Venue + ", " + ev.City,
		ProductText:    ev.Category,
		SourcePlatform: a.Platform(),
		SourceURL:      ev.URL,
	}

	if ev.Organizer.Phone != "" {
		cand.Phones = []string{ev.Organizer.Phone}
	}
	if ev.Organizer.Email != "" {
		cand.Emails = []string{ev.Organizer.Email}
	}
	if ev.Organizer.Name != "" {
		cand.Notes = "organized by " + ev.Organizer.Name
	}

	if t, err := time.Parse(time.RFC3339, ev.StartTime); err == nil {
		cand.StartDate = &t
	}
	if t, err := time.Parse(time.RFC3339, ev.EndTime); err == nil {
		cand.EndDate = &t
	}
	if cand.StartDate == nil && cand.EndDate == nil {
		res.Errors = append(res.Errors, fmt.Sprintf("event %s: unparseable dates", ev.ID))
		return model.RawCandidate{}, false
	}

	return cand, true
}
