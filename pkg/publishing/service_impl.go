package publishing

import (
	"fmt"
	"log/slog"
	"sync"
)

// service implements the Service interface
type service struct {
	ledger Ledger
	store  ContentStore

	eventSink EventSink
	logger    *slog.Logger
	retry     RetryPolicy

	// catalogLimit bounds concurrent per-article detail reads so bulk
	// catalog builds do not overwhelm the ledger RPC endpoint.
	catalogLimit int

	// cache holds per-viewer catalogs between confirmed writes. It is the
	// only mutable shared state in the core: rebuilt exclusively,
	// invalidated wholesale.
	cacheMu sync.RWMutex
	cache   map[Identity]*Catalog

	// buildMu serializes catalog rebuilds so a reader never observes a
	// half-built catalog.
	buildMu sync.Mutex
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithLedger sets the ledger client for the service
func WithLedger(l Ledger) Option {
	return func(s *service) {
		s.ledger = l
	}
}

// WithContentStore sets the content store for the service
func WithContentStore(cs ContentStore) Option {
	return func(s *service) {
		s.store = cs
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithRetryPolicy overrides the retry policy for retryable failures
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *service) {
		s.retry = p
	}
}

// WithCatalogConcurrency bounds concurrent per-article reads during catalog
// builds. Values below 1 are ignored.
func WithCatalogConcurrency(n int) Option {
	return func(s *service) {
		if n >= 1 {
			s.catalogLimit = n
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		retry:        DefaultRetryPolicy(),
		catalogLimit: 8,
		cache:        make(map[Identity]*Catalog),
	}

	for _, option := range options {
		option(s)
	}

	if s.ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	return s, nil
}

// invalidateCatalogs drops every cached catalog. Called after any confirmed
// write; there is no partial invalidation.
func (s *service) invalidateCatalogs() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache = make(map[Identity]*Catalog)
}

func (s *service) cachedCatalog(viewer Identity, search string) (*Catalog, bool) {
	if search != "" {
		// Filtered views are derived from the cached full build, never
		// cached themselves.
		return nil, false
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	c, ok := s.cache[viewer]
	return c, ok
}

func (s *service) storeCatalog(viewer Identity, c *Catalog) {
	if c.Partial {
		// A partial build must not mask a later complete one.
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[viewer] = c
}
