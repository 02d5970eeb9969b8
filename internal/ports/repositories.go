package ports

import (
	"context"

	"mirelle/internal/domain"
)

// ListFilter narrows record listings. The zero value lists everything, newest
// first.
type ListFilter struct {
	Category string
	// MinRevivalPotential keeps only legacy products scored at or above the
	// given value. Ignored for other kinds and when zero.
	MinRevivalPotential int
	// ByRevivalPotential orders legacy products by score before recency,
	// matching the dashboard's default listing.
	ByRevivalPotential bool
	Limit              int
}

// CompetitorRepository persists competitor products with their embedded
// classification documents.
type CompetitorRepository interface {
	UpsertCompetitor(ctx context.Context, p domain.CompetitorProduct) error
	GetCompetitor(ctx context.Context, id string) (domain.CompetitorProduct, error)
	ListCompetitors(ctx context.Context, f ListFilter) ([]domain.CompetitorProduct, error)
	DeleteCompetitor(ctx context.Context, id string) error
}

type LegacyRepository interface {
	UpsertLegacy(ctx context.Context, p domain.LegacyProduct) error
	GetLegacy(ctx context.Context, id string) (domain.LegacyProduct, error)
	ListLegacy(ctx context.Context, f ListFilter) ([]domain.LegacyProduct, error)
	DeleteLegacy(ctx context.Context, id string) error
	SetRevivalPotential(ctx context.Context, id string, score int) error
}

// ProposalRepository stores matcher output. Proposals are insert-only; there
// is no update path.
type ProposalRepository interface {
	InsertProposal(ctx context.Context, p domain.ProductProposal) error
	GetProposal(ctx context.Context, id string) (domain.ProductProposal, error)
	ListProposals(ctx context.Context, limit int) ([]domain.ProductProposal, error)
	DeleteProposal(ctx context.Context, id string) error
}

// CrawlRepository tracks crawl runs and the crawl history feed.
type CrawlRepository interface {
	CreateCrawl(ctx context.Context, source, sourceURL, category string) (crawlID string, err error)
	GetCrawl(ctx context.Context, id string) (domain.CrawlRun, error)
	CrawlStatus(ctx context.Context, id string) (status string, progress float64, err error)
	SetCrawlCounts(ctx context.Context, crawlID string, products, newProducts int) error
	RecordCrawlHistory(ctx context.Context, category string, products, newProducts int) error
	ListCrawlHistory(ctx context.Context, limit int) ([]domain.CrawlHistoryEntry, error)
}

// CrawledProductFilter narrows crawled-product listings.
type CrawledProductFilter struct {
	Category string
	// OnlyNew keeps entries flagged as new and not yet adopted into the
	// competitor catalog.
	OnlyNew bool
}

// CrawledProductRepository persists best-seller entries captured by crawls,
// keyed by product code.
type CrawledProductRepository interface {
	// UpsertCrawledProduct inserts or updates by product code and reports
	// whether the row was newly inserted. Updates keep the previous rank in
	// LastRank and record the rank delta.
	UpsertCrawledProduct(ctx context.Context, p domain.CrawledProduct) (inserted bool, err error)
	GetCrawledProduct(ctx context.Context, productCode string) (domain.CrawledProduct, error)
	ListCrawledProducts(ctx context.Context, f CrawledProductFilter) ([]domain.CrawledProduct, error)
	// ResetNewFlags clears every IsNew flag. Called before a collection so
	// only entries first seen in that collection stay flagged.
	ResetNewFlags(ctx context.Context) error
	MarkAddedToCompetitor(ctx context.Context, productCode string) error
}

type ReviewRepository interface {
	UpsertReviewAnalysis(ctx context.Context, a domain.ReviewAnalysis) error
	GetReviewAnalysis(ctx context.Context, productCode string) (domain.ReviewAnalysis, error)
}
