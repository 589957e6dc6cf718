package estimator

import (
	"github.com/kilianp07/evrange/core/factory"
	"github.com/kilianp07/evrange/core/model"
)

// Estimator is the capability shared by every range model.
type Estimator interface {
	// Name is the registry key of the model.
	Name() string
	// Unit is the distance unit of the returned range.
	Unit() model.DistanceUnit
	// ComputeRange decodes, validates and evaluates a raw parameter map.
	// Validation failures are returned as *ValidationError.
	ComputeRange(params map[string]any) (model.Estimate, error)
}

var registry = factory.NewRegistry[Estimator]()

func init() {
	_ = Register(degradationModelID, func(map[string]any) (Estimator, error) { return DegradationModel{}, nil })
	_ = Register(epaModelID, func(map[string]any) (Estimator, error) { return EpaModel{}, nil })
}

// Register adds an estimator factory under name.
func Register(name string, f factory.Factory[Estimator]) error {
	return registry.Register(name, f)
}

// New resolves a registered estimator. Unknown names wrap factory.ErrUnknownType.
func New(name string) (Estimator, error) {
	return registry.Create(factory.ModuleConfig{Type: name})
}

// Names lists the registered estimators.
func Names() []string { return registry.Names() }

// Known reports whether an estimator is registered under name.
func Known(name string) bool { return registry.Has(name) }
