package app

import (
	"sync/atomic"

	"github.com/ignite/filterplane/internal/domain"
)

// DynamicConfigStore holds the process-wide dynamic-rule-detector
// config (C4) in memory so admin edits take effect without a restart.
// internal/dynamic.Detector and internal/retention.Service both read
// it through a supplier function rather than a frozen value.
type DynamicConfigStore struct {
	current atomic.Pointer[domain.DynamicConfig]
}

// NewDynamicConfigStore seeds a store with an initial value.
func NewDynamicConfigStore(initial domain.DynamicConfig) *DynamicConfigStore {
	s := &DynamicConfigStore{}
	s.current.Store(&initial)
	return s
}

// Get returns the current config.
func (s *DynamicConfigStore) Get() domain.DynamicConfig {
	return *s.current.Load()
}

// Set replaces the current config, visible to every subsequent Get
// from any goroutine.
func (s *DynamicConfigStore) Set(cfg domain.DynamicConfig) {
	s.current.Store(&cfg)
}

// Supplier adapts Get to the func() domain.DynamicConfig shape
// internal/dynamic and internal/retention expect.
func (s *DynamicConfigStore) Supplier() func() domain.DynamicConfig {
	return s.Get
}
