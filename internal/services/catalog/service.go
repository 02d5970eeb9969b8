// Package catalog is the validated record store for the three record kinds.
// Every write validates its classification payload against the schema before
// anything reaches the database.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
)

type Service struct {
	sch         *schema.Schema
	competitors ports.CompetitorRepository
	legacy      ports.LegacyRepository
	proposals   ports.ProposalRepository
	now         func() time.Time
}

func New(sch *schema.Schema, competitors ports.CompetitorRepository, legacy ports.LegacyRepository, proposals ports.ProposalRepository) *Service {
	return &Service{
		sch:         sch,
		competitors: competitors,
		legacy:      legacy,
		proposals:   proposals,
		now:         time.Now,
	}
}

// PutCompetitor upserts by id. A blank id creates a new record. Returns the
// stored record with id and timestamps filled in.
func (s *Service) PutCompetitor(ctx context.Context, p domain.CompetitorProduct) (domain.CompetitorProduct, error) {
	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if err := s.sch.Validate(p.Classification); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if p.Classification == nil {
		p.Classification = domain.ClassificationPayload{}
	}
	// The upsert never rewrites created_at, so the returned record must carry
	// the stored one or put/get round-trips diverge.
	if p.ID != "" && p.CreatedAt.IsZero() {
		if existing, err := s.competitors.GetCompetitor(ctx, p.ID); err == nil {
			p.CreatedAt = existing.CreatedAt
		}
	}
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err := s.competitors.UpsertCompetitor(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Service) GetCompetitor(ctx context.Context, id string) (domain.CompetitorProduct, error) {
	return s.competitors.GetCompetitor(ctx, id)
}

func (s *Service) ListCompetitors(ctx context.Context, f ports.ListFilter) ([]domain.CompetitorProduct, error) {
	return s.competitors.ListCompetitors(ctx, f)
}

func (s *Service) DeleteCompetitor(ctx context.Context, id string) error {
	return s.competitors.DeleteCompetitor(ctx, id)
}

func (s *Service) PutLegacy(ctx context.Context, p domain.LegacyProduct) (domain.LegacyProduct, error) {
	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	switch p.Status {
	case domain.StatusActive, domain.StatusDiscontinued, domain.StatusUnknown:
	case "":
		p.Status = domain.StatusUnknown
	default:
		return p, fmt.Errorf("%w: bad status %q", domain.ErrValidation, p.Status)
	}
	if p.RevivalPotential != nil && (*p.RevivalPotential < 1 || *p.RevivalPotential > 5) {
		return p, fmt.Errorf("%w: revival potential must be 1..5", domain.ErrValidation)
	}
	if err := s.sch.Validate(p.Classification); err != nil {
		return p, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if p.Classification == nil {
		p.Classification = domain.ClassificationPayload{}
	}
	if p.ID != "" && p.CreatedAt.IsZero() {
		if existing, err := s.legacy.GetLegacy(ctx, p.ID); err == nil {
			p.CreatedAt = existing.CreatedAt
		}
	}
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err := s.legacy.UpsertLegacy(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Service) GetLegacy(ctx context.Context, id string) (domain.LegacyProduct, error) {
	return s.legacy.GetLegacy(ctx, id)
}

func (s *Service) ListLegacy(ctx context.Context, f ports.ListFilter) ([]domain.LegacyProduct, error) {
	return s.legacy.ListLegacy(ctx, f)
}

func (s *Service) DeleteLegacy(ctx context.Context, id string) error {
	return s.legacy.DeleteLegacy(ctx, id)
}

// HighPotentialLegacy lists legacy products scored at or above min, best
// first. The export report is built from this.
func (s *Service) HighPotentialLegacy(ctx context.Context, min int) ([]domain.LegacyProduct, error) {
	return s.legacy.ListLegacy(ctx, ports.ListFilter{
		MinRevivalPotential: min,
		ByRevivalPotential:  true,
	})
}

func (s *Service) GetProposal(ctx context.Context, id string) (domain.ProductProposal, error) {
	return s.proposals.GetProposal(ctx, id)
}

func (s *Service) ListProposals(ctx context.Context, limit int) ([]domain.ProductProposal, error) {
	return s.proposals.ListProposals(ctx, limit)
}

func (s *Service) DeleteProposal(ctx context.Context, id string) error {
	return s.proposals.DeleteProposal(ctx, id)
}

func (s *Service) stamp(id *string, createdAt, updatedAt *time.Time) {
	now := s.now().UTC().Truncate(time.Microsecond) // postgres timestamp resolution
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
