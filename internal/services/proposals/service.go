// Package proposals is the rule-based proposal matcher. It looks for
// attribute-values that recur across the stored competitor and legacy records
// and turns each category with recurring values into a ranked proposal.
package proposals

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
)

// minSupport is the number of distinct source records an attribute-value must
// appear in to count as market-validated.
const minSupport = 2

type Service struct {
	sch         *schema.Schema
	competitors ports.CompetitorRepository
	legacy      ports.LegacyRepository
	proposals   ports.ProposalRepository
	log         *zap.SugaredLogger
	now         func() time.Time
}

func New(sch *schema.Schema, competitors ports.CompetitorRepository, legacy ports.LegacyRepository, proposals ports.ProposalRepository, log *zap.SugaredLogger) *Service {
	return &Service{
		sch:         sch,
		competitors: competitors,
		legacy:      legacy,
		proposals:   proposals,
		log:         log,
		now:         time.Now,
	}
}

// Generate aggregates classification data across all stored competitor and
// legacy records, persists one proposal per category with recurring
// attribute-values, and returns them ordered by descending support. Ties keep
// the schema-declared category order. Fails with ErrInsufficientData when
// fewer than two records exist, since recurrence needs two sources.
func (s *Service) Generate(ctx context.Context) ([]domain.ProductProposal, error) {
	competitors, err := s.competitors.ListCompetitors(ctx, ports.ListFilter{})
	if err != nil {
		return nil, err
	}
	legacy, err := s.legacy.ListLegacy(ctx, ports.ListFilter{})
	if err != nil {
		return nil, err
	}
	if len(competitors)+len(legacy) < minSupport {
		return nil, domain.ErrInsufficientData
	}

	// category -> attribute-value -> distinct supporting record ids
	support := map[string]map[string]map[string]struct{}{}
	for _, c := range competitors {
		tally(support, c.ID, c.Classification)
	}
	for _, l := range legacy {
		tally(support, l.ID, l.Classification)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	var out []domain.ProductProposal
	for _, category := range s.sch.Categories() {
		p, ok := buildProposal(category, support[category], now)
		if !ok {
			continue
		}
		out = append(out, p)
	}
	// Stable sort keeps the schema-declared order among equal support counts.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SupportCount > out[j].SupportCount
	})

	for _, p := range out {
		if err := s.proposals.InsertProposal(ctx, p); err != nil {
			return nil, err
		}
	}
	if s.log != nil {
		s.log.Infow("proposals generated",
			"records", len(competitors)+len(legacy),
			"proposals", len(out))
	}
	return out, nil
}

// tally records every attribute-value of the payload under its category.
// Unknown categories were rejected at write time, so none survive to here.
func tally(support map[string]map[string]map[string]struct{}, recordID string, p domain.ClassificationPayload) {
	for category, attrs := range p {
		for _, raw := range attrs {
			for _, value := range flatten(raw) {
				if value == "" {
					continue
				}
				if support[category] == nil {
					support[category] = map[string]map[string]struct{}{}
				}
				if support[category][value] == nil {
					support[category][value] = map[string]struct{}{}
				}
				support[category][value][recordID] = struct{}{}
			}
		}
	}
}

// buildProposal forms the proposal for one category, if any attribute-value
// there reached minSupport.
func buildProposal(category string, values map[string]map[string]struct{}, now time.Time) (domain.ProductProposal, bool) {
	var matched []string
	supporters := map[string]struct{}{}
	for value, ids := range values {
		if len(ids) < minSupport {
			continue
		}
		matched = append(matched, value)
		for id := range ids {
			supporters[id] = struct{}{}
		}
	}
	if len(matched) == 0 {
		return domain.ProductProposal{}, false
	}
	sort.Strings(matched)
	ids := make([]string, 0, len(supporters))
	for id := range supporters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return domain.ProductProposal{
		ID:       uuid.NewString(),
		Title:    fmt.Sprintf("New product direction: %s", category),
		Category: category,
		Summary: fmt.Sprintf("%d records converge on %s within %s.",
			len(ids), strings.Join(matched, ", "), category),
		MatchedValues: matched,
		SupportingIDs: ids,
		SupportCount:  len(ids),
		CreatedAt:     now,
	}, true
}

// flatten turns an attribute value into comparable string keys. Small lists
// contribute each element; everything else contributes one key.
func flatten(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, flatten(e)...)
		}
		return out
	case []string:
		return t
	default:
		return []string{valueKey(v)}
	}
}

func valueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		// JSON numbers decode as float64; keep integers clean.
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
