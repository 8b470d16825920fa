package collector

import (
	"time"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/fetcher"
)

// DefaultRegistry builds the registry of all configured source collectors
// sharing one rate-limited HTTP client.
func DefaultRegistry(cfg config.CollectConfig) *Registry {
	client := fetcher.New(fetcher.Options{
		UserAgent:      cfg.UserAgent,
		Timeout:        time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	r := NewRegistry()
	r.Register(&Jiji{BaseURL: cfg.JijiBaseURL, Client: client})
	r.Register(&VConnect{BaseURL: cfg.VConnectBaseURL, Client: client})
	r.Register(&AllEvents{BaseURL: cfg.EventsBaseURL, Client: client})
	return r
}
