package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

// CompetitorRepository

func (db *DB) UpsertCompetitor(ctx context.Context, p domain.CompetitorProduct) error {
	payload, err := marshalPayload(p.Classification)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO competitor_products
			(id, brand, name, category, classification, price, product_page_url, strengths, weaknesses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			classification = EXCLUDED.classification,
			price = EXCLUDED.price,
			product_page_url = EXCLUDED.product_page_url,
			strengths = EXCLUDED.strengths,
			weaknesses = EXCLUDED.weaknesses,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Brand, p.Name, p.Category, payload, p.Price, p.ProductPageURL,
		p.Strengths, p.Weaknesses, p.CreatedAt, p.UpdatedAt)
	return err
}

func (db *DB) GetCompetitor(ctx context.Context, id string) (domain.CompetitorProduct, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, brand, name, category, classification, price, product_page_url, strengths, weaknesses, created_at, updated_at
		FROM competitor_products WHERE id = $1
	`, id)
	p, err := scanCompetitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

func (db *DB) ListCompetitors(ctx context.Context, f ports.ListFilter) ([]domain.CompetitorProduct, error) {
	q := `
		SELECT id, brand, name, category, classification, price, product_page_url, strengths, weaknesses, created_at, updated_at
		FROM competitor_products`
	var args []any
	if f.Category != "" {
		q += ` WHERE category = $1`
		args = append(args, f.Category)
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}
	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CompetitorProduct
	for rows.Next() {
		p, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) DeleteCompetitor(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM competitor_products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LegacyRepository

func (db *DB) UpsertLegacy(ctx context.Context, p domain.LegacyProduct) error {
	payload, err := marshalPayload(p.Classification)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO legacy_products
			(id, brand, name, category, status, launch_year, discontinue_year, classification, revival_potential, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			launch_year = EXCLUDED.launch_year,
			discontinue_year = EXCLUDED.discontinue_year,
			classification = EXCLUDED.classification,
			revival_potential = EXCLUDED.revival_potential,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Brand, p.Name, p.Category, string(p.Status), p.LaunchYear,
		p.DiscontinueYear, payload, p.RevivalPotential, p.CreatedAt, p.UpdatedAt)
	return err
}

func (db *DB) GetLegacy(ctx context.Context, id string) (domain.LegacyProduct, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, brand, name, category, status, launch_year, discontinue_year, classification, revival_potential, created_at, updated_at
		FROM legacy_products WHERE id = $1
	`, id)
	p, err := scanLegacy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

func (db *DB) ListLegacy(ctx context.Context, f ports.ListFilter) ([]domain.LegacyProduct, error) {
	q := `
		SELECT id, brand, name, category, status, launch_year, discontinue_year, classification, revival_potential, created_at, updated_at
		FROM legacy_products`
	var conds []string
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.MinRevivalPotential > 0 {
		args = append(args, f.MinRevivalPotential)
		conds = append(conds, fmt.Sprintf("revival_potential >= $%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.ByRevivalPotential {
		q += ` ORDER BY revival_potential DESC NULLS LAST, created_at DESC, id`
	} else {
		q += ` ORDER BY created_at DESC, id`
	}
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}
	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LegacyProduct
	for rows.Next() {
		p, err := scanLegacy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) DeleteLegacy(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM legacy_products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) SetRevivalPotential(ctx context.Context, id string, score int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE legacy_products SET revival_potential = $2, updated_at = now() WHERE id = $1
	`, id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ProposalRepository

func (db *DB) InsertProposal(ctx context.Context, p domain.ProductProposal) error {
	matched, err := json.Marshal(orEmpty(p.MatchedValues))
	if err != nil {
		return err
	}
	supporting, err := json.Marshal(orEmpty(p.SupportingIDs))
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO product_proposals
			(id, title, category, summary, matched_values, supporting_ids, support_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Title, p.Category, p.Summary, matched, supporting, p.SupportCount, p.CreatedAt)
	return err
}

func (db *DB) GetProposal(ctx context.Context, id string) (domain.ProductProposal, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, title, category, summary, matched_values, supporting_ids, support_count, created_at
		FROM product_proposals WHERE id = $1
	`, id)
	p, err := scanProposal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

func (db *DB) ListProposals(ctx context.Context, limit int) ([]domain.ProductProposal, error) {
	q := `
		SELECT id, title, category, summary, matched_values, supporting_ids, support_count, created_at
		FROM product_proposals
		ORDER BY created_at DESC, support_count DESC, id`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProductProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) DeleteProposal(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM product_proposals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanning helpers

func scanCompetitor(row pgx.Row) (domain.CompetitorProduct, error) {
	var p domain.CompetitorProduct
	var payload []byte
	err := row.Scan(&p.ID, &p.Brand, &p.Name, &p.Category, &payload, &p.Price,
		&p.ProductPageURL, &p.Strengths, &p.Weaknesses, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(payload, &p.Classification); err != nil {
		return p, fmt.Errorf("decode classification for %s: %w", p.ID, err)
	}
	return p, nil
}

func scanLegacy(row pgx.Row) (domain.LegacyProduct, error) {
	var p domain.LegacyProduct
	var payload []byte
	var status string
	err := row.Scan(&p.ID, &p.Brand, &p.Name, &p.Category, &status, &p.LaunchYear,
		&p.DiscontinueYear, &payload, &p.RevivalPotential, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Status = domain.DiscontinuationStatus(status)
	if err := json.Unmarshal(payload, &p.Classification); err != nil {
		return p, fmt.Errorf("decode classification for %s: %w", p.ID, err)
	}
	return p, nil
}

func scanProposal(row pgx.Row) (domain.ProductProposal, error) {
	var p domain.ProductProposal
	var matched, supporting []byte
	err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Summary, &matched,
		&supporting, &p.SupportCount, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(matched, &p.MatchedValues); err != nil {
		return p, err
	}
	if err := json.Unmarshal(supporting, &p.SupportingIDs); err != nil {
		return p, err
	}
	return p, nil
}

func marshalPayload(p domain.ClassificationPayload) ([]byte, error) {
	if p == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(p)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
