package domain

import "fmt"

// CategoryRegistry resolves category ids to their definitions.
// A registry is read-only; build a new one after the category list changes.
type CategoryRegistry struct {
	defs     []CategoryDefinition
	byID     map[string]int
	fallback *CategoryDefinition
}

// NewCategoryRegistry indexes defs by id. Later duplicates are ignored.
func NewCategoryRegistry(defs []CategoryDefinition) *CategoryRegistry {
	r := &CategoryRegistry{
		defs: make([]CategoryDefinition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if _, exists := r.byID[def.ID]; exists {
			continue
		}
		r.byID[def.ID] = len(r.defs)
		r.defs = append(r.defs, def)
	}
	return r
}

// WithFallback returns a registry that resolves unknown ids to def instead of failing
func (r *CategoryRegistry) WithFallback(def CategoryDefinition) *CategoryRegistry {
	return &CategoryRegistry{defs: r.defs, byID: r.byID, fallback: &def}
}

// Resolve returns the definition for id, the fallback if one is configured,
// or an error wrapping ErrUnknownCategory
func (r *CategoryRegistry) Resolve(id string) (CategoryDefinition, error) {
	if i, ok := r.byID[id]; ok {
		return r.defs[i], nil
	}
	if r.fallback != nil {
		return *r.fallback, nil
	}
	return CategoryDefinition{}, fmt.Errorf("%w: %q", ErrUnknownCategory, id)
}

// ResolveOrUncategorized never fails; unknown ids degrade to Uncategorized
func (r *CategoryRegistry) ResolveOrUncategorized(id string) CategoryDefinition {
	def, err := r.Resolve(id)
	if err != nil {
		return Uncategorized
	}
	return def
}

// Contains reports whether id has a registered definition
func (r *CategoryRegistry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// DefaultType is the classification a transaction gets when it does not override it
func (r *CategoryRegistry) DefaultType(id string) ClassificationType {
	return r.ResolveOrUncategorized(id).DefaultType
}

// EffectiveType applies the resolution order used everywhere: the registry
// default first, then a valid per-transaction override on top of it.
func (r *CategoryRegistry) EffectiveType(id string, override ClassificationType) ClassificationType {
	t := r.DefaultType(id)
	if override.IsValid() {
		t = override
	}
	return t
}

// All returns the definitions in registration order
func (r *CategoryRegistry) All() []CategoryDefinition {
	out := make([]CategoryDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Len returns the number of registered categories
func (r *CategoryRegistry) Len() int {
	return len(r.defs)
}
