package engine

import (
	"sync"

	"github.com/tgotic/xPDFSearch/internal/config"
	"github.com/tgotic/xPDFSearch/internal/docreader"
)

// Registry hands out extractors keyed by an explicit caller-context name, so
// each calling context owns its session state instead of relying on implicit
// per-thread singletons.
type Registry struct {
	cfg    *config.Config
	opener docreader.Opener
	params Params

	mu         sync.Mutex
	extractors map[string]*Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config, opener docreader.Opener, params Params) *Registry {
	return &Registry{
		cfg:        cfg,
		opener:     opener,
		params:     params.withDefaults(),
		extractors: make(map[string]*Extractor),
	}
}

// Get returns the extractor for a caller context, creating it on first use.
func (r *Registry) Get(name string) *Extractor {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.extractors[name]
	if !ok {
		e = NewExtractor(r.cfg, r.opener, r.params)
		r.extractors[name] = e
	}
	return e
}

// StopAll cancels in-flight work on every extractor, as when the caller is
// about to enumerate a new directory.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.extractors {
		e.Stop()
	}
}

// CloseAll aborts every extractor and empties the registry. Used on unload.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	extractors := r.extractors
	r.extractors = make(map[string]*Extractor)
	r.mu.Unlock()
	for _, e := range extractors {
		e.Abort()
	}
}
