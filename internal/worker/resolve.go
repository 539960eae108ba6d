package worker

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/whirlun/emigo-go/internal/provider"
)

// resolveProvider resolves an interaction_request's "provider/model" (or
// bare model) string to a registered Provider, the way the config-driven
// model selection elsewhere in this module does it.
func resolveProvider(registry *provider.Registry, model string) (provider.Provider, error) {
	providerID, _ := provider.ParseModelString(model)
	if providerID == "" {
		for _, p := range registry.List() {
			for _, m := range p.Models() {
				if m.ID == model {
					return p, nil
				}
			}
		}
		return nil, fmt.Errorf("no provider registered for model %q", model)
	}
	return registry.Get(providerID)
}

// generateRequestID mints a correlation ID for an outstanding tool_request
// or get_environment_details_request, prefixed by purpose the way the
// Python worker's f"tool_{time.time_ns()}" / f"env_{time.time_ns()}" IDs
// were, but using a ULID for uniqueness instead of a raw timestamp.
func generateRequestID(purpose string) string {
	return purpose + "_" + ulid.Make().String()
}
