// Package usp manages the trigger-keyword dictionary used to spot unique
// selling points in review text. Keywords are grouped by classification
// category and loaded from a YAML file, with a built-in default set.
package usp

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mirelle/internal/schema"
)

var defaultSchema = schema.Default()

type Category struct {
	Description string   `yaml:"description,omitempty"`
	Keywords    []string `yaml:"keywords"`
}

type Dictionary struct {
	// Categories maps classification category keys to trigger keywords.
	Categories map[string]Category `yaml:"categories"`
	// Exclusions are filler words; a sentence containing only these carries
	// no signal.
	Exclusions []string `yaml:"exclusions"`
	// Positive and Negative drive review polarity counting.
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Match is the result of scanning one piece of text for trigger keywords.
type Match struct {
	Category string
	Words    []string
}

// Load reads a dictionary from a YAML file. An empty path returns the
// built-in defaults.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read usp dictionary: %w", err)
	}
	var d Dictionary
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse usp dictionary: %w", err)
	}
	if d.Categories == nil {
		d.Categories = map[string]Category{}
	}
	return &d, nil
}

// Defaults is the starter keyword set distilled from Korean cosmetics review
// language. Projects grow their own dictionary file from here.
func Defaults() *Dictionary {
	return &Dictionary{
		Categories: map[string]Category{
			schema.Formulation: {
				Description: "texture and finish",
				Keywords:    []string{"제형", "촉촉", "발림성", "쫀쫀", "산뜻", "가벼운", "끈적"},
			},
			schema.Scent: {
				Description: "fragrance",
				Keywords:    []string{"향", "은은", "향긋", "무향"},
			},
			schema.Ingredients: {
				Description: "ingredient callouts",
				Keywords:    []string{"성분", "무자극", "순한", "비건", "저자극"},
			},
			schema.UserExperience: {
				Description: "application and wear",
				Keywords:    []string{"사용감", "흡수", "밀착", "지속력", "커버력"},
			},
			schema.DesignPackaging: {
				Description: "container and packaging",
				Keywords:    []string{"용기", "패키지", "디자인", "펌핑"},
			},
			schema.Marketing: {
				Description: "repurchase and recommendation language",
				Keywords:    []string{"재구매", "추천", "인생템", "가성비"},
			},
		},
		Exclusions: []string{"그냥", "근데", "진짜", "완전"},
		Positive: []string{
			"좋아", "좋음", "최고", "만족", "촉촉", "순하", "추천", "재구매",
			"가성비", "산뜻", "부드러", "흡수", "은은",
		},
		Negative: []string{
			"끈적", "자극", "트러블", "밀림", "들뜸", "아쉽", "별로", "무거",
			"뾰루지", "답답",
		},
	}
}

// TriggerKeywords returns every trigger keyword across categories.
func (d *Dictionary) TriggerKeywords() map[string]struct{} {
	out := map[string]struct{}{}
	for _, cat := range d.Categories {
		for _, kw := range cat.Keywords {
			out[kw] = struct{}{}
		}
	}
	return out
}

func (d *Dictionary) KeywordsByCategory(category string) []string {
	return d.Categories[category].Keywords
}

// FindTriggerWords scans text for trigger keywords, one Match per category
// that hit. Categories from the classification schema come first in declared
// order; any extra categories a dictionary file defines follow, sorted.
func (d *Dictionary) FindTriggerWords(text string) []Match {
	var out []Match
	for _, key := range d.orderedCategories() {
		var words []string
		for _, kw := range d.Categories[key].Keywords {
			if strings.Contains(text, kw) {
				words = append(words, kw)
			}
		}
		if len(words) > 0 {
			out = append(out, Match{Category: key, Words: words})
		}
	}
	return out
}

func (d *Dictionary) orderedCategories() []string {
	out := make([]string, 0, len(d.Categories))
	for _, key := range defaultSchema.Categories() {
		if _, ok := d.Categories[key]; ok {
			out = append(out, key)
		}
	}
	var extras []string
	for key := range d.Categories {
		if !defaultSchema.Contains(key) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}

// HasOnlyExclusionWords reports whether text carries no trigger keyword but
// does contain at least one exclusion word.
func (d *Dictionary) HasOnlyExclusionWords(text string) bool {
	for kw := range d.TriggerKeywords() {
		if strings.Contains(text, kw) {
			return false
		}
	}
	for _, w := range d.Exclusions {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
