// Package export renders the collected research as a markdown document the
// dashboard offers for download. The matcher and store stay unaware of the
// format.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mirelle/internal/domain"
)

// Research renders high-potential legacy products and generated proposals as
// one markdown document. Ordering follows the input slices, so callers decide
// ranking.
func Research(now time.Time, highPotential []domain.LegacyProduct, proposals []domain.ProductProposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Cosmetics market research summary\n")
	fmt.Fprintf(&b, "Generated: %s\n\n---\n\n", now.Format("2006-01-02 15:04"))

	fmt.Fprintf(&b, "## 1. High revival-potential legacy products (%d)\n\n", len(highPotential))
	if len(highPotential) == 0 {
		b.WriteString("No legacy products scored 4 or above yet.\n\n")
	}
	for _, p := range highPotential {
		score := "-"
		if p.RevivalPotential != nil {
			score = strings.Repeat("⭐", *p.RevivalPotential)
		}
		fmt.Fprintf(&b, "### %s - %s (%s)\n", orDash(p.Brand), p.Name, score)
		fmt.Fprintf(&b, "- **Category**: %s\n", orDash(p.Category))
		fmt.Fprintf(&b, "- **Launched/discontinued**: %s → %s\n", orDashYear(p.LaunchYear), orDashYear(p.DiscontinueYear))
		fmt.Fprintf(&b, "- **Status**: %s\n", p.Status)
		if keys := categoryKeys(p.Classification); len(keys) > 0 {
			fmt.Fprintf(&b, "- **Documented categories**: %s\n", strings.Join(keys, ", "))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n## 2. Generated proposals (%d)\n\n", len(proposals))
	if len(proposals) == 0 {
		b.WriteString("No proposals generated yet.\n\n")
	}
	for _, p := range proposals {
		fmt.Fprintf(&b, "### %s\n", p.Title)
		fmt.Fprintf(&b, "- **Category**: %s\n", p.Category)
		fmt.Fprintf(&b, "- **Matched attributes**: %s\n", strings.Join(p.MatchedValues, ", "))
		fmt.Fprintf(&b, "- **Support**: %d records (%s)\n", p.SupportCount, strings.Join(p.SupportingIDs, ", "))
		if p.Summary != "" {
			fmt.Fprintf(&b, "- **Summary**: %s\n", p.Summary)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n## 3. Next step\n\n")
	b.WriteString("Use the data above to draft new-product concepts: reinterpret the\n")
	b.WriteString("high-potential legacy concepts for today's market and lean on the\n")
	b.WriteString("recurring attributes as validated differentiation points.\n")
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orDashYear(y *int) string {
	if y == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *y)
}

// categoryKeys lists the payload's documented categories in stable order.
func categoryKeys(p domain.ClassificationPayload) []string {
	if len(p) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p))
	for k, attrs := range p {
		if len(attrs) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
