package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partybase-ng/directory-cli/internal/fetcher"
	"github.com/partybase-ng/directory-cli/internal/model"
)

func testFetcher() *fetcher.Client {
	return fetcher.New(fetcher.Options{
		Timeout:        2 * time.Second,
		RequestsPerSec: 1000,
		MaxRetries:     1,
	})
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry()
	r.Register(&Jiji{})
	r.Register(&VConnect{})
	r.Register(&AllEvents{})

	assert.Equal(t, []string{"jiji", "vconnect", "allevents"}, r.Names())

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := r.Select([]string{"vconnect"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "vconnect", some[0].Platform())

	_, err = r.Select([]string{"nope"})
	assert.Error(t, err)
}

func TestJijiCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("slug"), "party-wedding-equipment") {
			w.Write([]byte(`{"adverts":{"list":[]}}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"adverts":{"list":[
			{"id":1,"title":"Eko Canopy Wholesale","description":"canopies in bulk, MOQ 20",
			 "region_name":"Lagos","url":"https://jiji.ng/ad/1","phone":"08012345678",
			 "rating":4.5,"rating_count":12},
			{"id":2,"title":"","description":"missing title"}
		]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	j := &Jiji{BaseURL: srv.URL, Client: testFetcher()}
	res, err := j.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "Eko Canopy Wholesale", c.Name)
	assert.Equal(t, "Lagos", c.RegionText)
	assert.Equal(t, []string{"08012345678"}, c.Phones)
	assert.Equal(t, "jiji", c.SourcePlatform)
	assert.Equal(t, 12, c.Ratings["jiji"].Count)
	assert.Len(t, res.Errors, 1, "the titleless advert is an item-level error")
	assert.GreaterOrEqual(t, res.ElapsedMS, int64(0))
}

func TestJijiCollectAllQueriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	j := &Jiji{BaseURL: srv.URL, Client: testFetcher()}
	_, err := j.Collect(context.Background())
	assert.Error(t, err, "a source with no output at all is a failed source")
}

func TestVConnectCollect(t *testing.T) {
	page := `<html><body>
	<div class="listing-card">
		<h3 class="listing-name"><a href="/lagos/biz/tents-r-us">Tents R Us</a></h3>
		<span class="listing-address">12 Balogun Street, Ikeja, Lagos</span>
		<p class="listing-services">canopy rental, chairs, tables</p>
		<a class="listing-phone">0802 333 4455</a>
		<a class="listing-email">info@tentsrus.ng</a>
		<a class="listing-website" href="https://tentsrus.ng">site</a>
	</div>
	<div class="listing-card">
		<h3 class="listing-name"><a href="/x">  </a></h3>
	</div>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page)) //nolint:errcheck
	}))
	defer srv.Close()

	v := &VConnect{BaseURL: srv.URL, Client: testFetcher()}
	res, err := v.Collect(context.Background())
	require.NoError(t, err)

	// Both configured paths serve the same fixture page.
	require.Len(t, res.Candidates, 2)
	c := res.Candidates[0]
	assert.Equal(t, "Tents R Us", c.Name)
	assert.Equal(t, srv.URL+"/lagos/biz/tents-r-us", c.SourceURL)
	assert.Equal(t, []string{"0802 333 4455"}, c.Phones)
	assert.Equal(t, []string{"info@tentsrus.ng"}, c.Emails)
	assert.Equal(t, []string{"https://tentsrus.ng"}, c.Websites)
	assert.Len(t, res.Errors, 2, "one nameless card per page")
}

func TestAllEventsCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[
			{"id":"e1","title":"Lagos Wedding Fair","venue":"Eko Hotel","city":"Lagos",
			 "state":"Lagos","category":"wedding","url":"https://allevents.ng/e1",
			 "start_time":"2026-10-01T09:00:00Z","end_time":"2026-10-02T18:00:00Z",
			 "organizer":{"name":"Eko Events","phone":"08011112222","email":"hi@eko.ng"}},
			{"id":"e2","title":"No Dates","url":"https://allevents.ng/e2",
			 "start_time":"not-a-date","end_time":""}
		]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := &AllEvents{BaseURL: srv.URL, Client: testFetcher()}
	res, err := a.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, model.KindEvent, c.Kind)
	assert.Equal(t, "Lagos Wedding Fair", c.Name)
	require.NotNil(t, c.EndDate)
	assert.Equal(t, 2026, c.EndDate.Year())
	assert.Equal(t, "organized by Eko Events", c.Notes)
	assert.Len(t, res.Errors, 1)
}
