package crawlrunner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

// Processor performs the crawl work for a job's crawl id.
type Processor interface {
	Process(ctx context.Context, crawlID string) error
}

// ProductSource turns a crawl run into listing entries. The HTTP listing
// fetcher is the production implementation.
type ProductSource interface {
	Fetch(ctx context.Context, run domain.CrawlRun) ([]domain.CrawledProduct, error)
}

// Collector runs one crawl end to end: fetch the source listing, land every
// entry in the crawled-product store, and write the collected/new counts to
// the crawl run and the history feed.
type Collector struct {
	Jobs     ports.JobRepository
	Crawls   ports.CrawlRepository
	Products ports.CrawledProductRepository
	Source   ProductSource
}

func (c Collector) Process(ctx context.Context, crawlID string) error {
	run, err := c.Crawls.GetCrawl(ctx, crawlID)
	if err != nil {
		return err
	}

	// The first collection has no baseline, so nothing counts as a new entry.
	history, err := c.Crawls.ListCrawlHistory(ctx, 1)
	if err != nil {
		return err
	}
	firstCrawl := len(history) == 0
	if !firstCrawl {
		if err := c.Products.ResetNewFlags(ctx); err != nil {
			return err
		}
	}
	existing, err := c.Products.ListCrawledProducts(ctx, ports.CrawledProductFilter{})
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.ProductCode] = true
	}

	if err := c.Jobs.UpdateCrawlProgress(ctx, crawlID, 0.2); err != nil {
		return err
	}
	entries, err := c.Source.Fetch(ctx, run)
	if err != nil {
		return err
	}
	if err := c.Jobs.UpdateCrawlProgress(ctx, crawlID, 0.6); err != nil {
		return err
	}

	newCount := 0
	for _, entry := range entries {
		if entry.ProductCode == "" {
			continue
		}
		entry.IsNew = !firstCrawl && !seen[entry.ProductCode]
		inserted, err := c.Products.UpsertCrawledProduct(ctx, entry)
		if err != nil {
			return err
		}
		if inserted {
			newCount++
		}
	}

	if err := c.Crawls.SetCrawlCounts(ctx, crawlID, len(entries), newCount); err != nil {
		return err
	}
	return c.Crawls.RecordCrawlHistory(ctx, run.Category, len(entries), newCount)
}

// Run starts worker goroutines that claim queued crawl jobs and process them.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, log *zap.SugaredLogger) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.CrawlJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, found, err := repo.ClaimNext(ctx)
					if err != nil {
						log.Errorw("crawl job claim failed", "error", err)
						break
					}
					if !found {
						break
					}
					jobsCh <- job
				}
			}
		}
	}()

	// workers
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if err := processor.Process(ctx, job.CrawlID); err != nil {
					_ = repo.MarkFailed(ctx, job.ID, err.Error())
					log.Warnw("crawl job failed", "worker", idx, "job", job.ID, "error", err)
					continue
				}
				if err := repo.MarkCompleted(ctx, job.ID); err != nil {
					log.Errorw("crawl job completion failed", "worker", idx, "job", job.ID, "error", err)
				}
			}
		}(i)
	}
}

// ProcessInline starts and processes a specific crawl synchronously using the
// same processor logic as the background workers. Used by the dashboard's
// run-now path.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor Processor, crawlID string) error {
	jobID, err := repo.StartJobForCrawl(ctx, crawlID)
	if err != nil {
		return err
	}
	if err := processor.Process(ctx, crawlID); err != nil {
		_ = repo.MarkFailed(ctx, jobID, err.Error())
		return err
	}
	return repo.MarkCompleted(ctx, jobID)
}
