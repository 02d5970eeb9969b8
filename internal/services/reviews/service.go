// Package reviews derives a per-category sentiment summary from raw review
// texts, using the USP dictionary for keywords. Negated keywords flip
// polarity ("자극 없이" reads as positive).
package reviews

import (
	"context"
	"sort"
	"strings"
	"time"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
	"mirelle/internal/schema"
	"mirelle/internal/usp"
)

// negations flip the polarity of a keyword they directly follow.
var negations = []string{"없", "않", "안 ", "전혀", "별로"}

type Service struct {
	dict    *usp.Dictionary
	sch     *schema.Schema
	reviews ports.ReviewRepository
	now     func() time.Time
}

func New(dict *usp.Dictionary, sch *schema.Schema, reviews ports.ReviewRepository) *Service {
	return &Service{dict: dict, sch: sch, reviews: reviews, now: time.Now}
}

// Analyze classifies each review as positive, negative or neutral, tallies
// sentiment per classification category, and upserts the stored summary for
// the product code.
func (s *Service) Analyze(ctx context.Context, productCode, brand, name string, reviewTexts []string) (domain.ReviewAnalysis, error) {
	type tally struct{ pos, neg int }
	categories := map[string]*tally{}
	for _, key := range s.sch.Categories() {
		categories[key] = &tally{}
	}

	var positive, negative int
	for _, text := range reviewTexts {
		if s.dict.HasOnlyExclusionWords(text) {
			continue
		}
		polarity := s.polarity(text)
		switch {
		case polarity > 0:
			positive++
		case polarity < 0:
			negative++
		}
		for _, m := range s.dict.FindTriggerWords(text) {
			t := categories[m.Category]
			if t == nil {
				continue
			}
			if polarity >= 0 {
				t.pos++
			} else {
				t.neg++
			}
		}
	}

	a := domain.ReviewAnalysis{
		ProductCode:    productCode,
		Brand:          brand,
		Name:           name,
		TotalReviews:   len(reviewTexts),
		PositiveCount:  positive,
		NegativeCount:  negative,
		CategoryScores: map[string]float64{},
		AnalyzedAt:     s.now().UTC().Truncate(time.Microsecond),
	}
	if positive+negative > 0 {
		a.PositiveRatio = float64(positive) / float64(positive+negative)
	}
	for _, key := range s.sch.Categories() {
		t := categories[key]
		if t.pos+t.neg == 0 {
			continue
		}
		a.CategoryScores[key] = float64(t.pos-t.neg) / float64(t.pos+t.neg)
		if t.pos > t.neg {
			a.Strengths = append(a.Strengths, key)
		} else if t.neg > t.pos {
			a.Weaknesses = append(a.Weaknesses, key)
		}
	}
	// Strongest signals first; schema order breaks ties via stable sort.
	sort.SliceStable(a.Strengths, func(i, j int) bool {
		return a.CategoryScores[a.Strengths[i]] > a.CategoryScores[a.Strengths[j]]
	})
	sort.SliceStable(a.Weaknesses, func(i, j int) bool {
		return a.CategoryScores[a.Weaknesses[i]] < a.CategoryScores[a.Weaknesses[j]]
	})

	if err := s.reviews.UpsertReviewAnalysis(ctx, a); err != nil {
		return domain.ReviewAnalysis{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, productCode string) (domain.ReviewAnalysis, error) {
	return s.reviews.GetReviewAnalysis(ctx, productCode)
}

// polarity scores one review text: positive keyword hits count up, negative
// hits count down, and a negation following a keyword flips it.
func (s *Service) polarity(text string) int {
	score := 0
	for _, kw := range s.dict.Positive {
		score += hits(text, kw)
	}
	for _, kw := range s.dict.Negative {
		score -= hits(text, kw)
	}
	return score
}

// hits counts occurrences of kw in text, counting negated occurrences as -1.
// Korean negation follows the word it negates ("자극 없이", "끈적이지 않아요"),
// so only the text right after the keyword is checked.
func hits(text, kw string) int {
	n := 0
	for i := 0; ; {
		idx := strings.Index(text[i:], kw)
		if idx < 0 {
			break
		}
		pos := i + idx
		if negatedAfter(text[pos+len(kw):]) {
			n--
		} else {
			n++
		}
		i = pos + len(kw)
	}
	return n
}

func negatedAfter(suffix string) bool {
	head := suffix
	if len(head) > 12 {
		head = head[:12]
	}
	for _, neg := range negations {
		if strings.Contains(head, neg) {
			return true
		}
	}
	return false
}
