package analysis

import (
	"log/slog"
	"sync/atomic"

	"meetingintel/internal/analyzers"
	"meetingintel/internal/config"
	"meetingintel/internal/stage"
)

// RegistryHolder supplies the current stage registry to concurrent callers.
type RegistryHolder struct {
	current atomic.Pointer[stage.Registry]
}

// NewRegistryHolder returns a holder seeded with reg.
func NewRegistryHolder(reg *stage.Registry) *RegistryHolder {
	h := &RegistryHolder{}
	h.current.Store(reg)
	return h
}

// Load returns the current registry, or nil if none was stored.
func (h *RegistryHolder) Load() *stage.Registry {
	if h == nil {
		return nil
	}
	return h.current.Load()
}

// Swap installs reg and returns the registry it replaced.
func (h *RegistryHolder) Swap(reg *stage.Registry) *stage.Registry {
	return h.current.Swap(reg)
}

// BuildRegistry resolves the configured stage definitions (definition file,
// inline stages, or built-in defaults) and builds the registry.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*stage.Registry, error) {
	defs, err := cfg.ResolveStages()
	if err != nil {
		return nil, err
	}
	return analyzers.BuildRegistry(defs, analyzers.NewDeps(cfg, logger))
}
