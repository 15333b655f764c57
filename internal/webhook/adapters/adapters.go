package adapters

import (
	"strings"

	"github.com/smallbiznis/storefront/internal/webhook/domain"
)

// Adapter turns one provider's payload shape into a NormalizedEvent.
type Adapter interface {
	Provider() string
	Parse(payload []byte) (domain.NormalizedEvent, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	registry := &Registry{adapters: map[string]Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) Get(provider string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
