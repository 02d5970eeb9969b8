package schema

import (
	"fmt"

	"mirelle/internal/domain"
)

// The ten fixed classification categories, in declared order. The order is
// load-bearing: proposal ties are broken by it and reports render in it.
const (
	DesignPackaging  = "design_packaging"
	UserExperience   = "user_experience"
	Formulation      = "formulation"
	Color            = "color"
	Scent            = "scent"
	Ingredients      = "ingredients"
	Technology       = "technology"
	UsageEnvironment = "usage_environment"
	Marketing        = "marketing"
	Sustainability   = "sustainability"
)

// Schema is the immutable classification category set. Construct it once with
// Default and pass it to the store and scorer; it carries no mutable state.
type Schema struct {
	keys []string
	set  map[string]struct{}
}

func Default() *Schema {
	keys := []string{
		DesignPackaging,
		UserExperience,
		Formulation,
		Color,
		Scent,
		Ingredients,
		Technology,
		UsageEnvironment,
		Marketing,
		Sustainability,
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &Schema{keys: keys, set: set}
}

// Categories returns the category keys in declared order.
func (s *Schema) Categories() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *Schema) Contains(key string) bool {
	_, ok := s.set[key]
	return ok
}

// Validate rejects payloads that use a category key outside the fixed set.
func (s *Schema) Validate(p domain.ClassificationPayload) error {
	for key := range p {
		if !s.Contains(key) {
			return fmt.Errorf("%w: %q", domain.ErrSchemaViolation, key)
		}
	}
	return nil
}

// Coverage counts declared categories that carry at least one attribute.
func (s *Schema) Coverage(p domain.ClassificationPayload) int {
	n := 0
	for key, attrs := range p {
		if s.Contains(key) && len(attrs) > 0 {
			n++
		}
	}
	return n
}
