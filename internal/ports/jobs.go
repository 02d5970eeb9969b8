package ports

import "context"

type CrawlJob struct {
	ID      string
	CrawlID string
}

// JobRepository supports claiming and updating crawl jobs.
type JobRepository interface {
	ClaimNext(ctx context.Context) (job CrawlJob, found bool, err error)
	MarkRunning(ctx context.Context, jobID string) error
	UpdateCrawlProgress(ctx context.Context, crawlID string, progress float64) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	StartJobForCrawl(ctx context.Context, crawlID string) (jobID string, err error)
}
