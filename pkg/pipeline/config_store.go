package pipeline

import (
	"sync"

	"faultline/internal/logger"
)

// RuntimeConfig is the client-tunable part of a pipeline: the sample rate
// and the environment tag stamped onto captured events. MaxBreadcrumbs is
// carried for config-surface compatibility; nothing here records
// breadcrumbs.
type RuntimeConfig struct {
	Environment    string  `mapstructure:"environment" json:"environment"`
	SampleRate     float64 `mapstructure:"sample_rate" json:"sample_rate"`
	MaxBreadcrumbs int     `mapstructure:"max_breadcrumbs" json:"max_breadcrumbs"`
}

// ConfigStore holds the runtime config for one pipeline instance. Two
// pipelines in one process never share configuration.
type ConfigStore struct {
	mu     sync.RWMutex
	cfg    RuntimeConfig
	set    bool
	logger logger.Logger

	warnOnce sync.Once
}

func NewConfigStore(log logger.Logger) *ConfigStore {
	if log == nil {
		log = logger.NopLogger()
	}
	return &ConfigStore{logger: log}
}

func (s *ConfigStore) Set(cfg RuntimeConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.set = true
	s.mu.Unlock()
}

// Get returns the stored config and whether one was ever set. The unset
// case means "sample everything, no environment tag"; a stored SampleRate
// of zero is honored as drop-everything. The unset warning fires once per
// store, not once per event.
func (s *ConfigStore) Get() (RuntimeConfig, bool) {
	s.mu.RLock()
	cfg, ok := s.cfg, s.set
	s.mu.RUnlock()

	if !ok {
		s.warnOnce.Do(func() {
			s.logger.Warnw("runtime config never set, sampling everything")
		})
	}
	return cfg, ok
}

// IsSet reports whether a config was ever stored, without triggering the
// unset warning.
func (s *ConfigStore) IsSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}
