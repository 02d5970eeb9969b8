package ports

import (
	"context"

	"mirelle/internal/domain"
)

// Catalog is the validated record store surface the dashboard pages call.
type Catalog interface {
	PutCompetitor(ctx context.Context, p domain.CompetitorProduct) (domain.CompetitorProduct, error)
	GetCompetitor(ctx context.Context, id string) (domain.CompetitorProduct, error)
	ListCompetitors(ctx context.Context, f ListFilter) ([]domain.CompetitorProduct, error)
	DeleteCompetitor(ctx context.Context, id string) error

	PutLegacy(ctx context.Context, p domain.LegacyProduct) (domain.LegacyProduct, error)
	GetLegacy(ctx context.Context, id string) (domain.LegacyProduct, error)
	ListLegacy(ctx context.Context, f ListFilter) ([]domain.LegacyProduct, error)
	DeleteLegacy(ctx context.Context, id string) error
	HighPotentialLegacy(ctx context.Context, min int) ([]domain.LegacyProduct, error)

	GetProposal(ctx context.Context, id string) (domain.ProductProposal, error)
	ListProposals(ctx context.Context, limit int) ([]domain.ProductProposal, error)
	DeleteProposal(ctx context.Context, id string) error
}

// Reviver computes and persists revival-potential scores for legacy products.
type Reviver interface {
	Score(ctx context.Context, legacyID string) (int, error)
}

// Proposer generates and persists ranked product proposals from the stored
// competitor and legacy records.
type Proposer interface {
	Generate(ctx context.Context) ([]domain.ProductProposal, error)
}

// Crawler enqueues and tracks crawl runs and surfaces what they collected.
type Crawler interface {
	Enqueue(ctx context.Context, sourceURL, category string) (crawlID string, err error)
	Status(ctx context.Context, crawlID string) (status string, progress float64, err error)
	History(ctx context.Context, limit int) ([]domain.CrawlHistoryEntry, error)
	Products(ctx context.Context, f CrawledProductFilter) ([]domain.CrawledProduct, error)
	Product(ctx context.Context, productCode string) (domain.CrawledProduct, error)
	MarkAdopted(ctx context.Context, productCode string) error
}

// ReviewAnalyzer turns raw review texts into a stored sentiment summary.
type ReviewAnalyzer interface {
	Analyze(ctx context.Context, productCode, brand, name string, reviews []string) (domain.ReviewAnalysis, error)
	Get(ctx context.Context, productCode string) (domain.ReviewAnalysis, error)
}
