package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

// CrawledProductRepository

// UpsertCrawledProduct inserts or updates a listing entry by product code.
// Updates keep the previous best rank in last_rank and store the rank delta.
func (db *DB) UpsertCrawledProduct(ctx context.Context, p domain.CrawledProduct) (bool, error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var oldRank int
	err = tx.QueryRow(ctx, `
		SELECT best_rank FROM crawled_products WHERE product_code = $1
	`, p.ProductCode).Scan(&oldRank)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = tx.Exec(ctx, `
			INSERT INTO crawled_products
				(product_code, brand, name, category, price, original_price, product_url, image_url, best_rank, review_count, is_new)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, p.ProductCode, p.Brand, p.Name, p.Category, p.Price, p.OriginalPrice,
			p.ProductURL, p.ImageURL, p.Rank, p.ReviewCount, p.IsNew)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	rankChange := 0
	if oldRank > 0 && p.Rank > 0 {
		rankChange = oldRank - p.Rank
	}
	_, err = tx.Exec(ctx, `
		UPDATE crawled_products SET
			brand = $2, name = $3, category = $4, price = $5, original_price = $6,
			product_url = $7, image_url = $8, best_rank = $9, review_count = $10,
			is_new = $11, last_rank = $12, rank_change = $13, last_seen_at = now()
		WHERE product_code = $1
	`, p.ProductCode, p.Brand, p.Name, p.Category, p.Price, p.OriginalPrice,
		p.ProductURL, p.ImageURL, p.Rank, p.ReviewCount, p.IsNew, oldRank, rankChange)
	if err != nil {
		return false, err
	}
	return false, nil
}

func (db *DB) GetCrawledProduct(ctx context.Context, productCode string) (domain.CrawledProduct, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT product_code, brand, name, category, price, original_price, product_url, image_url, best_rank, last_rank, rank_change, review_count, is_new, added_to_competitor, first_seen_at, last_seen_at
		FROM crawled_products WHERE product_code = $1
	`, productCode)
	p, err := scanCrawledProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

func (db *DB) ListCrawledProducts(ctx context.Context, f ports.CrawledProductFilter) ([]domain.CrawledProduct, error) {
	q := `
		SELECT product_code, brand, name, category, price, original_price, product_url, image_url, best_rank, last_rank, rank_change, review_count, is_new, added_to_competitor, first_seen_at, last_seen_at
		FROM crawled_products`
	var conds []string
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.OnlyNew {
		conds = append(conds, "is_new AND NOT added_to_competitor")
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY best_rank, product_code`
	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CrawledProduct
	for rows.Next() {
		p, err := scanCrawledProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) ResetNewFlags(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `UPDATE crawled_products SET is_new = FALSE`)
	return err
}

func (db *DB) MarkAddedToCompetitor(ctx context.Context, productCode string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE crawled_products SET added_to_competitor = TRUE WHERE product_code = $1
	`, productCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCrawledProduct(row pgx.Row) (domain.CrawledProduct, error) {
	var p domain.CrawledProduct
	err := row.Scan(&p.ProductCode, &p.Brand, &p.Name, &p.Category, &p.Price,
		&p.OriginalPrice, &p.ProductURL, &p.ImageURL, &p.Rank, &p.LastRank,
		&p.RankChange, &p.ReviewCount, &p.IsNew, &p.AddedToCompetitor,
		&p.FirstSeenAt, &p.LastSeenAt)
	return p, err
}
