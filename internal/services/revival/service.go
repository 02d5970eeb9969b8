// Package revival assigns the 1..5 revival-potential score to legacy
// products.
package revival

import (
	"context"
	"strings"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
)

// breadthThreshold is the number of documented categories that earns the
// breadth bonus.
const breadthThreshold = 6

// UniqueMarker reports whether a payload carries a unique/differentiated
// marker. The attribute-name convention is not fixed, so the predicate is
// injectable.
type UniqueMarker func(domain.ClassificationPayload) bool

// DefaultUniqueMarker accepts any attribute named unique, unique_features or
// differentiated with a truthy value, under any category.
func DefaultUniqueMarker(p domain.ClassificationPayload) bool {
	for _, attrs := range p {
		for name, v := range attrs {
			switch strings.ToLower(name) {
			case "unique", "unique_features", "differentiated":
				if truthy(v) {
					return true
				}
			}
		}
	}
	return false
}

type Service struct {
	sch    *schema.Schema
	legacy ports.LegacyRepository
	unique UniqueMarker
}

type Option func(*Service)

func WithUniqueMarker(fn UniqueMarker) Option {
	return func(s *Service) { s.unique = fn }
}

func New(sch *schema.Schema, legacy ports.LegacyRepository, opts ...Option) *Service {
	s := &Service{sch: sch, legacy: legacy, unique: DefaultUniqueMarker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the revival potential for a legacy product and writes it
// back through the store. Deterministic: identical input, identical score.
func (s *Service) Score(ctx context.Context, legacyID string) (int, error) {
	rec, err := s.legacy.GetLegacy(ctx, legacyID)
	if err != nil {
		return 0, err
	}
	score := s.Compute(rec)
	if err := s.legacy.SetRevivalPotential(ctx, legacyID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// Compute applies the scoring rule without touching storage. Base score comes
// from discontinuation status; revival of a still-active product is moot, so
// active scores lowest.
func (s *Service) Compute(rec domain.LegacyProduct) int {
	var score int
	switch rec.Status {
	case domain.StatusDiscontinued:
		score = 3
	case domain.StatusActive:
		score = 1
	default:
		score = 2
	}
	if s.sch.Coverage(rec.Classification) >= breadthThreshold {
		score++
	}
	if s.unique(rec.Classification) {
		score++
	}
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	return score
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "no", "0":
			return false
		}
		return true
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}
