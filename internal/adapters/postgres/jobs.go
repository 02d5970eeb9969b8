package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

// ClaimNext selects the next queued crawl job using SKIP LOCKED and marks it
// running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.CrawlJob, found bool, err error) {
	// Use explicit transaction to safely lock and transition state
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id, crawl_id FROM crawl_jobs
		WHERE status = 'queued'
		ORDER BY queued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&job.ID, &job.CrawlID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE crawl_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
	`, job.ID); err != nil {
		return job, false, err
	}
	// Ensure crawls reflects running
	if _, err = tx.Exec(ctx, `
		UPDATE crawls SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
	`, job.CrawlID); err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (db *DB) MarkRunning(ctx context.Context, jobID string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE crawl_jobs SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1`, jobID)
	return err
}

func (db *DB) UpdateCrawlProgress(ctx context.Context, crawlID string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	_, err := db.Pool.Exec(ctx, `UPDATE crawls SET progress=$2 WHERE id=$1`, crawlID, progress)
	return err
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var crawlID string
	if err = tx.QueryRow(ctx, `SELECT crawl_id FROM crawl_jobs WHERE id=$1`, jobID).Scan(&crawlID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawl_jobs SET status='completed', finished_at=now() WHERE id=$1`, jobID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawls SET status='completed', progress=1, finished_at=now() WHERE id=$1`, crawlID); err != nil {
		return err
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()
	var crawlID string
	if err = tx.QueryRow(ctx, `SELECT crawl_id FROM crawl_jobs WHERE id=$1`, jobID).Scan(&crawlID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawl_jobs SET status='failed', failure_reason=$2, finished_at=now() WHERE id=$1`, jobID, reason); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawls SET status='failed', finished_at=now() WHERE id=$1`, crawlID); err != nil {
		return err
	}
	return nil
}

// StartJobForCrawl marks the job for a specific crawl as running and returns
// the job id. Used by the blocking run-now path.
func (db *DB) StartJobForCrawl(ctx context.Context, crawlID string) (string, error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var jobID string
	// lock specific job row if queued
	err = tx.QueryRow(ctx, `
		SELECT id FROM crawl_jobs
		WHERE crawl_id = $1 AND status = 'queued'
		FOR UPDATE SKIP LOCKED
	`, crawlID).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		// A background worker beat us to the job.
		err = fmt.Errorf("%w: crawl %s has no queued job", domain.ErrConflict, crawlID)
		return "", err
	}
	if err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawl_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1`, jobID); err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx, `UPDATE crawls SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1`, crawlID); err != nil {
		return "", err
	}
	return jobID, nil
}
