package harvester

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the harvester processor component with the given
// registry. Every instance created by the registry harvests through runner.
func Register(registry RegistryInterface, runner Runner) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	if runner == nil {
		return fmt.Errorf("runner cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name: "harvester",
		Factory: func(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
			c, err := NewComponent(rawConfig, deps, runner)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Schema:      harvesterSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "semantic",
		Description: "Semantic asset harvester for ontologies, controlled vocabularies and schemas",
		Version:     "0.1.0",
	})
}
