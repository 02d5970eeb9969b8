// Package crawls registers crawl runs against external product listing
// sources. The actual page fetching lives behind the worker's Processor; this
// service only tracks runs.
package crawls

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

type Service struct {
	crawls   ports.CrawlRepository
	products ports.CrawledProductRepository
}

func New(crawls ports.CrawlRepository, products ports.CrawledProductRepository) *Service {
	return &Service{crawls: crawls, products: products}
}

// Enqueue normalizes the source URL to its registrable domain and creates a
// queued crawl run with its job row.
func (s *Service) Enqueue(ctx context.Context, rawurl, category string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("%w: bad source url", domain.ErrValidation)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: source url has no host", domain.ErrValidation)
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	return s.crawls.CreateCrawl(ctx, registrable, rawurl, category)
}

func (s *Service) Status(ctx context.Context, crawlID string) (string, float64, error) {
	return s.crawls.CrawlStatus(ctx, crawlID)
}

// History returns the most recent crawl history rows, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.CrawlHistoryEntry, error) {
	return s.crawls.ListCrawlHistory(ctx, limit)
}

// Products lists collected listing entries, best rank first.
func (s *Service) Products(ctx context.Context, f ports.CrawledProductFilter) ([]domain.CrawledProduct, error) {
	return s.products.ListCrawledProducts(ctx, f)
}

func (s *Service) Product(ctx context.Context, productCode string) (domain.CrawledProduct, error) {
	return s.products.GetCrawledProduct(ctx, productCode)
}

// MarkAdopted flags a collected entry as promoted into the competitor
// catalog, removing it from the new-entry feed.
func (s *Service) MarkAdopted(ctx context.Context, productCode string) error {
	return s.products.MarkAddedToCompetitor(ctx, productCode)
}
