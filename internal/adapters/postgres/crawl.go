package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"mirelle/internal/domain"
)

// CrawlRepository

// CreateCrawl inserts a queued crawl run plus its job row.
func (db *DB) CreateCrawl(ctx context.Context, source, sourceURL, category string) (string, error) {
	var crawlID string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO crawls (source, source_url, category, status, progress)
		VALUES ($1, $2, $3, 'queued', 0)
		RETURNING id
	`, source, sourceURL, category).Scan(&crawlID)
	if err != nil {
		return "", err
	}
	_, err = db.Pool.Exec(ctx, `INSERT INTO crawl_jobs (crawl_id) VALUES ($1)`, crawlID)
	return crawlID, err
}

func (db *DB) GetCrawl(ctx context.Context, id string) (domain.CrawlRun, error) {
	var c domain.CrawlRun
	err := db.Pool.QueryRow(ctx, `
		SELECT id, source, source_url, category, status, progress, products_count, new_products_count, started_at, finished_at, created_at
		FROM crawls WHERE id = $1
	`, id).Scan(&c.ID, &c.Source, &c.SourceURL, &c.Category, &c.Status, &c.Progress,
		&c.ProductsCount, &c.NewProductsCount, &c.StartedAt, &c.FinishedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

func (db *DB) CrawlStatus(ctx context.Context, id string) (string, float64, error) {
	var status string
	var progress float64
	err := db.Pool.QueryRow(ctx, `SELECT status, progress FROM crawls WHERE id = $1`, id).Scan(&status, &progress)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, domain.ErrNotFound
	}
	return status, progress, err
}

func (db *DB) SetCrawlCounts(ctx context.Context, crawlID string, products, newProducts int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE crawls SET products_count = $2, new_products_count = $3 WHERE id = $1
	`, crawlID, products, newProducts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) RecordCrawlHistory(ctx context.Context, category string, products, newProducts int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO crawl_history (category, products_count, new_products_count)
		VALUES ($1, $2, $3)
	`, category, products, newProducts)
	return err
}

func (db *DB) ListCrawlHistory(ctx context.Context, limit int) ([]domain.CrawlHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, category, products_count, new_products_count, crawled_at
		FROM crawl_history ORDER BY crawled_at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CrawlHistoryEntry
	for rows.Next() {
		var e domain.CrawlHistoryEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.ProductsCount, &e.NewProductsCount, &e.CrawledAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReviewRepository

func (db *DB) UpsertReviewAnalysis(ctx context.Context, a domain.ReviewAnalysis) error {
	strengths, err := json.Marshal(orEmpty(a.Strengths))
	if err != nil {
		return err
	}
	weaknesses, err := json.Marshal(orEmpty(a.Weaknesses))
	if err != nil {
		return err
	}
	scores, err := json.Marshal(a.CategoryScores)
	if err != nil {
		return err
	}
	if a.CategoryScores == nil {
		scores = []byte(`{}`)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO review_analysis
			(product_code, brand, name, total_reviews, positive_count, negative_count, positive_ratio, strengths, weaknesses, category_scores, analyzed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (product_code) DO UPDATE SET
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			total_reviews = EXCLUDED.total_reviews,
			positive_count = EXCLUDED.positive_count,
			negative_count = EXCLUDED.negative_count,
			positive_ratio = EXCLUDED.positive_ratio,
			strengths = EXCLUDED.strengths,
			weaknesses = EXCLUDED.weaknesses,
			category_scores = EXCLUDED.category_scores,
			analyzed_at = EXCLUDED.analyzed_at,
			updated_at = now()
	`, a.ProductCode, a.Brand, a.Name, a.TotalReviews, a.PositiveCount,
		a.NegativeCount, a.PositiveRatio, strengths, weaknesses, scores, a.AnalyzedAt)
	return err
}

func (db *DB) GetReviewAnalysis(ctx context.Context, productCode string) (domain.ReviewAnalysis, error) {
	var a domain.ReviewAnalysis
	var strengths, weaknesses, scores []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT product_code, brand, name, total_reviews, positive_count, negative_count, positive_ratio, strengths, weaknesses, category_scores, analyzed_at
		FROM review_analysis WHERE product_code = $1
	`, productCode).Scan(&a.ProductCode, &a.Brand, &a.Name, &a.TotalReviews,
		&a.PositiveCount, &a.NegativeCount, &a.PositiveRatio, &strengths,
		&weaknesses, &scores, &a.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, domain.ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(strengths, &a.Strengths); err != nil {
		return a, err
	}
	if err := json.Unmarshal(weaknesses, &a.Weaknesses); err != nil {
		return a, err
	}
	if err := json.Unmarshal(scores, &a.CategoryScores); err != nil {
		return a, err
	}
	return a, nil
}
