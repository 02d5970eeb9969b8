package catalog

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
)

// fakeStore is an in-memory stand-in for the postgres repositories.
type fakeStore struct {
	competitors map[string]domain.CompetitorProduct
	legacy      map[string]domain.LegacyProduct
	proposals   map[string]domain.ProductProposal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		competitors: map[string]domain.CompetitorProduct{},
		legacy:      map[string]domain.LegacyProduct{},
		proposals:   map[string]domain.ProductProposal{},
	}
}

func (f *fakeStore) UpsertCompetitor(_ context.Context, p domain.CompetitorProduct) error {
	f.competitors[p.ID] = p
	return nil
}

func (f *fakeStore) GetCompetitor(_ context.Context, id string) (domain.CompetitorProduct, error) {
	p, ok := f.competitors[id]
	if !ok {
		return p, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListCompetitors(_ context.Context, fl ports.ListFilter) ([]domain.CompetitorProduct, error) {
	var out []domain.CompetitorProduct
	for _, p := range f.competitors {
		if fl.Category != "" && p.Category != fl.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteCompetitor(_ context.Context, id string) error {
	if _, ok := f.competitors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.competitors, id)
	return nil
}

func (f *fakeStore) UpsertLegacy(_ context.Context, p domain.LegacyProduct) error {
	f.legacy[p.ID] = p
	return nil
}

func (f *fakeStore) GetLegacy(_ context.Context, id string) (domain.LegacyProduct, error) {
	p, ok := f.legacy[id]
	if !ok {
		return p, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListLegacy(_ context.Context, fl ports.ListFilter) ([]domain.LegacyProduct, error) {
	var out []domain.LegacyProduct
	for _, p := range f.legacy {
		if fl.Category != "" && p.Category != fl.Category {
			continue
		}
		if fl.MinRevivalPotential > 0 && (p.RevivalPotential == nil || *p.RevivalPotential < fl.MinRevivalPotential) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if fl.ByRevivalPotential {
			a, b := 0, 0
			if out[i].RevivalPotential != nil {
				a = *out[i].RevivalPotential
			}
			if out[j].RevivalPotential != nil {
				b = *out[j].RevivalPotential
			}
			if a != b {
				return a > b
			}
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) DeleteLegacy(_ context.Context, id string) error {
	if _, ok := f.legacy[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.legacy, id)
	return nil
}

func (f *fakeStore) SetRevivalPotential(_ context.Context, id string, score int) error {
	p, ok := f.legacy[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RevivalPotential = &score
	f.legacy[id] = p
	return nil
}

func (f *fakeStore) InsertProposal(_ context.Context, p domain.ProductProposal) error {
	f.proposals[p.ID] = p
	return nil
}

func (f *fakeStore) GetProposal(_ context.Context, id string) (domain.ProductProposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return p, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProposals(_ context.Context, limit int) ([]domain.ProductProposal, error) {
	var out []domain.ProductProposal
	for _, p := range f.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DeleteProposal(_ context.Context, id string) error {
	if _, ok := f.proposals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.proposals, id)
	return nil
}

var _ ports.CompetitorRepository = (*fakeStore)(nil)
var _ ports.LegacyRepository = (*fakeStore)(nil)
var _ ports.ProposalRepository = (*fakeStore)(nil)

func newService(store *fakeStore) *Service {
	return New(schema.Default(), store, store, store)
}

func TestPutCompetitorAssignsIdentityAndTimestamps(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	stored, err := svc.PutCompetitor(context.Background(), domain.CompetitorProduct{
		Brand: "Glow", Name: "Dew Cream",
		Classification: domain.ClassificationPayload{
			schema.Formulation: {"texture": "gel"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
	assert.Len(t, store.competitors, 1)
}

func TestPutCompetitorIsIdempotentOnID(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.PutCompetitor(ctx, domain.CompetitorProduct{Name: "Dew Cream"})
	require.NoError(t, err)

	amended := first
	amended.Strengths = "holds makeup all day"
	second, err := svc.PutCompetitor(ctx, amended)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.competitors, 1)
	got, err := svc.GetCompetitor(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "holds makeup all day", got.Strengths)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
}

func TestPutCompetitorUpdateKeepsStoredCreatedAt(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.PutCompetitor(ctx, domain.CompetitorProduct{Name: "Dew Cream"})
	require.NoError(t, err)

	// Clients usually resend only the editable fields.
	updated, err := svc.PutCompetitor(ctx, domain.CompetitorProduct{
		ID: first.ID, Name: "Dew Cream", Strengths: "light finish",
	})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, updated.CreatedAt, "returned record must match the stored row")
	assert.Equal(t, first.CreatedAt, store.competitors[first.ID].CreatedAt)
}

func TestPutLegacyUpdateKeepsStoredCreatedAt(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.PutLegacy(ctx, domain.LegacyProduct{Name: "Pearl Essence"})
	require.NoError(t, err)

	updated, err := svc.PutLegacy(ctx, domain.LegacyProduct{
		ID: first.ID, Name: "Pearl Essence", Status: domain.StatusDiscontinued,
	})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.Equal(t, first.CreatedAt, store.legacy[first.ID].CreatedAt)
}

func TestPutCompetitorRejectsUnknownCategory(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	_, err := svc.PutCompetitor(context.Background(), domain.CompetitorProduct{
		Name: "Dew Cream",
		Classification: domain.ClassificationPayload{
			"pricing": {"tier": "budget"},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
	assert.Empty(t, store.competitors, "rejected write must not reach the store")
}

func TestPutCompetitorRequiresName(t *testing.T) {
	svc := newService(newFakeStore())
	_, err := svc.PutCompetitor(context.Background(), domain.CompetitorProduct{Brand: "Glow"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompetitorRoundTrip(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	price := 18000
	url := "https://example.com/p/1"
	in := domain.CompetitorProduct{
		Brand:    "Glow",
		Name:     "Dew Cream",
		Category: "moisturizer",
		Classification: domain.ClassificationPayload{
			schema.Formulation: {"texture": "gel", "spf": float64(30)},
			schema.Scent:       {"notes": []any{"citrus", "musk"}},
		},
		Price:          &price,
		ProductPageURL: &url,
		Strengths:      "light",
		Weaknesses:     "small jar",
	}
	stored, err := svc.PutCompetitor(ctx, in)
	require.NoError(t, err)

	got, err := svc.GetCompetitor(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestGetCompetitorNotFound(t *testing.T) {
	svc := newService(newFakeStore())
	_, err := svc.GetCompetitor(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutLegacyNormalizesStatus(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	stored, err := svc.PutLegacy(ctx, domain.LegacyProduct{Name: "Pearl Essence"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnknown, stored.Status)

	_, err = svc.PutLegacy(ctx, domain.LegacyProduct{Name: "Pearl Essence", Status: "retired"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPutLegacyRejectsOutOfRangeScore(t *testing.T) {
	svc := newService(newFakeStore())
	six := 6
	_, err := svc.PutLegacy(context.Background(), domain.LegacyProduct{Name: "Pearl Essence", RevivalPotential: &six})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHighPotentialLegacy(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	put := func(name string, score *int, createdOffset time.Duration) {
		p, err := svc.PutLegacy(ctx, domain.LegacyProduct{
			Name: name, Status: domain.StatusDiscontinued, RevivalPotential: score,
		})
		require.NoError(t, err)
		p.CreatedAt = p.CreatedAt.Add(createdOffset)
		store.legacy[p.ID] = p
	}
	four, five := 4, 5
	put("low", nil, 0)
	put("mid", &four, time.Second)
	put("top", &five, 2*time.Second)

	got, err := svc.HighPotentialLegacy(ctx, 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "top", got[0].Name)
	assert.Equal(t, "mid", got[1].Name)
}

func TestDeleteLegacy(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()

	stored, err := svc.PutLegacy(ctx, domain.LegacyProduct{Name: "Pearl Essence"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLegacy(ctx, stored.ID))
	assert.ErrorIs(t, svc.DeleteLegacy(ctx, stored.ID), domain.ErrNotFound)
}
