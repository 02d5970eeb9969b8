package domain

import "time"

// Core domain models used internally. HTTP request/response shapes live in the
// http adapter; keep these decoupled where helpful.

// Attributes holds the free-form attribute map of one classification category.
// Values are strings, numbers, booleans or small lists of those.
type Attributes map[string]any

// ClassificationPayload maps a category key to its attributes. Category keys
// must come from the fixed classification schema; the store rejects anything
// else at write time.
type ClassificationPayload map[string]Attributes

// DiscontinuationStatus of a legacy product.
type DiscontinuationStatus string

const (
	StatusActive       DiscontinuationStatus = "active"
	StatusDiscontinued DiscontinuationStatus = "discontinued"
	StatusUnknown      DiscontinuationStatus = "unknown"
)

type CompetitorProduct struct {
	ID             string                `json:"id"`
	Brand          string                `json:"brand"`
	Name           string                `json:"name"`
	Category       string                `json:"category"` // source shelf category, not a classification key
	Classification ClassificationPayload `json:"classification"`
	Price          *int                  `json:"price,omitempty"`
	ProductPageURL *string               `json:"product_page_url,omitempty"`
	Strengths      string                `json:"strengths,omitempty"`  // captured from detail pages
	Weaknesses     string                `json:"weaknesses,omitempty"` // captured from reviews
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type LegacyProduct struct {
	ID              string                `json:"id"`
	Brand           string                `json:"brand"`
	Name            string                `json:"name"`
	Category        string                `json:"category"`
	Status          DiscontinuationStatus `json:"status"`
	LaunchYear      *int                  `json:"launch_year,omitempty"`
	DiscontinueYear *int                  `json:"discontinue_year,omitempty"`
	Classification  ClassificationPayload `json:"classification"`
	// RevivalPotential is 1..5, nil until the scorer has run.
	RevivalPotential *int      `json:"revival_potential,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProductProposal is produced by the proposal matcher and read-only afterwards.
// SupportingIDs reference competitor/legacy records by identifier only; the
// referenced records are not owned and may be deleted independently.
type ProductProposal struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"` // classification category the match was found in
	Summary       string    `json:"summary"`
	MatchedValues []string  `json:"matched_values"`
	SupportingIDs []string  `json:"supporting_ids"`
	SupportCount  int       `json:"support_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CrawlRun tracks one crawl of an external product listing source.
type CrawlRun struct {
	ID               string     `json:"id"`
	Source           string     `json:"source"` // registrable domain of the source site
	SourceURL        string     `json:"source_url"`
	Category         string     `json:"category"`
	Status           string     `json:"status"` // queued|running|completed|failed
	Progress         float64    `json:"progress"`
	ProductsCount    int        `json:"products_count"`
	NewProductsCount int        `json:"new_products_count"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CrawledProduct is one best-seller listing entry captured by a crawl, keyed
// by the source site's product code. IsNew marks first appearance after the
// initial collection; AddedToCompetitor is set once the entry has been adopted
// into the competitor catalog.
type CrawledProduct struct {
	ProductCode       string    `json:"product_code"`
	Brand             string    `json:"brand"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Price             int       `json:"price"`
	OriginalPrice     int       `json:"original_price"`
	ProductURL        string    `json:"product_url"`
	ImageURL          string    `json:"image_url"`
	Rank              int       `json:"rank"`
	LastRank          int       `json:"last_rank"`
	RankChange        int       `json:"rank_change"`
	ReviewCount       int       `json:"review_count"`
	IsNew             bool      `json:"is_new"`
	AddedToCompetitor bool      `json:"added_to_competitor"`
	FirstSeenAt       time.Time `json:"first_seen_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// CrawlHistoryEntry summarizes a finished crawl for the dashboard.
type CrawlHistoryEntry struct {
	ID               int64     `json:"id"`
	Category         string    `json:"category"`
	ProductsCount    int       `json:"products_count"`
	NewProductsCount int       `json:"new_products_count"`
	CrawledAt        time.Time `json:"crawled_at"`
}

// ReviewAnalysis is the keyword-derived sentiment summary for one crawled
// product, keyed by its external product code.
type ReviewAnalysis struct {
	ProductCode    string             `json:"product_code"`
	Brand          string             `json:"brand"`
	Name           string             `json:"name"`
	TotalReviews   int                `json:"total_reviews"`
	PositiveCount  int                `json:"positive_count"`
	NegativeCount  int                `json:"negative_count"`
	PositiveRatio  float64            `json:"positive_ratio"`
	Strengths      []string           `json:"strengths"` // classification categories with positive majority
	Weaknesses     []string           `json:"weaknesses"`
	CategoryScores map[string]float64 `json:"category_scores"` // -1..1 per classification category
	AnalyzedAt     time.Time          `json:"analyzed_at"`
}
