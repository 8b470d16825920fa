// Package collector defines the per-source collection contract and the
// reference collectors that feed the refresh pipeline.
package collector

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// Result is the outcome of one collector execution. Errors holds per-item
// extraction failures that did not abort the source; a collector that
// produced no output at all returns a non-nil error from Collect instead.
type Result struct {
	Candidates []model.RawCandidate `json:"candidates"`
	Errors     []string             `json:"errors,omitempty"`
	ElapsedMS  int64                `json:"elapsed_ms"`
}

// Collector fetches raw documents from one external source and extracts
// candidate records. Implementations are stateless and side-effect-free
// beyond network I/O.
type Collector interface {
	// Platform returns the static source platform name.
	Platform() string

	// Collect fetches and extracts candidates. Item-level extraction
	// failures are reported in Result.Errors; a returned error means the
	// source produced nothing.
	Collect(ctx context.Context) (*Result, error)
}

// Registry maps platform names to collectors. Registration is explicit;
// there is no runtime discovery.
type Registry struct {
	collectors map[string]Collector
	order      []string // registration order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds a collector to the registry.
func (r *Registry) Register(c Collector) {
	name := c.Platform()
	r.collectors[name] = c
	r.order = append(r.order, name)
}

// Get returns a collector by platform name.
func (r *Registry) Get(name string) (Collector, error) {
	c, ok := r.collectors[name]
	if !ok {
		return nil, eris.Errorf("collector: unknown source %q", name)
	}
	return c, nil
}

// Select returns the named collectors, or all of them when names is empty,
// in registration order.
func (r *Registry) Select(names []string) ([]Collector, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	out := make([]Collector, 0, len(names))
	for _, name := range names {
		c, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// All returns every registered collector in registration order.
func (r *Registry) All() []Collector {
	out := make([]Collector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.collectors[name])
	}
	return out
}

// Names returns all registered platform names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
