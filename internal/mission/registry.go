package mission

import (
	"fmt"
	"sync"
)

// Registry manages evaluator registration and lookup by mission type.
type Registry struct {
	evaluators map[string]Evaluator
	mu         sync.RWMutex
}

// NewRegistry creates a registry pre-loaded with the built-in mission
// types.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[string]Evaluator)}
	for _, e := range []Evaluator{
		expenseEvaluator{},
		savingEvaluator{},
		combinedEvaluator{},
		careEvaluator{},
	} {
		_ = r.Register(e)
	}
	return r
}

// Register adds an evaluator under every mission type it handles.
// An evaluator registered for a type already present replaces it.
func (r *Registry) Register(e Evaluator) error {
	if e == nil {
		return fmt.Errorf("cannot register nil evaluator")
	}
	if len(e.Types()) == 0 {
		return fmt.Errorf("evaluator handles no mission types")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range e.Types() {
		r.evaluators[t] = e
	}
	return nil
}

// Get retrieves the evaluator for a mission type.
func (r *Registry) Get(missionType string) (Evaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[missionType]
	return e, ok
}

// Progress computes the completion percentage for a mission type.
// Unknown types report zero progress so a bad seed row can never
// complete or credit.
func (r *Registry) Progress(missionType string, requirements, progress map[string]int) float64 {
	e, ok := r.Get(missionType)
	if !ok {
		return 0
	}
	return e.Progress(requirements, progress)
}

// Counts reports whether the given counter key advances the mission type.
func (r *Registry) Counts(missionType, key string) bool {
	e, ok := r.Get(missionType)
	if !ok {
		return false
	}
	for _, k := range e.CountedKeys() {
		if k == key {
			return true
		}
	}
	return false
}
