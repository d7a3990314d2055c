package wrapper

import "github.com/krew-solutions/ascetic-hybrid-go/hybrid/model"

// Properties finds computed properties referenced by name.
type Properties interface {
	Property(name string) (Evaluator, bool)
}

// Scope is what expressions are resolved against: the model of the
// targets they will be evaluated on and the computed properties declared
// for it. Resolutions are cached per *Scope, so a scope is built once and
// reused.
type Scope struct {
	Model      model.Container
	Properties Properties
}

func (s *Scope) property(name string) (Evaluator, bool) {
	if s.Properties == nil {
		return nil, false
	}
	return s.Properties.Property(name)
}
