package crawlrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirelle/internal/domain"
	"mirelle/internal/ports"
)

type fakeJobs struct {
	started   []string
	completed []string
	failed    map[string]string
}

func (f *fakeJobs) ClaimNext(context.Context) (ports.CrawlJob, bool, error) {
	return ports.CrawlJob{}, false, nil
}
func (f *fakeJobs) MarkRunning(context.Context, string) error                  { return nil }
func (f *fakeJobs) UpdateCrawlProgress(context.Context, string, float64) error { return nil }

func (f *fakeJobs) MarkCompleted(_ context.Context, jobID string) error {
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, jobID, reason string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[jobID] = reason
	return nil
}

func (f *fakeJobs) StartJobForCrawl(_ context.Context, crawlID string) (string, error) {
	f.started = append(f.started, crawlID)
	return "job-" + crawlID, nil
}

type funcProcessor func(ctx context.Context, crawlID string) error

func (fn funcProcessor) Process(ctx context.Context, crawlID string) error { return fn(ctx, crawlID) }

type fakeCrawls struct {
	run             domain.CrawlRun
	history         []domain.CrawlHistoryEntry
	counts          [2]int
	recordedHistory [][2]int
}

func (f *fakeCrawls) CreateCrawl(context.Context, string, string, string) (string, error) {
	return "", nil
}

func (f *fakeCrawls) GetCrawl(context.Context, string) (domain.CrawlRun, error) {
	return f.run, nil
}

func (f *fakeCrawls) CrawlStatus(context.Context, string) (string, float64, error) {
	return f.run.Status, f.run.Progress, nil
}

func (f *fakeCrawls) SetCrawlCounts(_ context.Context, _ string, products, newProducts int) error {
	f.counts = [2]int{products, newProducts}
	return nil
}

func (f *fakeCrawls) RecordCrawlHistory(_ context.Context, _ string, products, newProducts int) error {
	f.recordedHistory = append(f.recordedHistory, [2]int{products, newProducts})
	return nil
}

func (f *fakeCrawls) ListCrawlHistory(context.Context, int) ([]domain.CrawlHistoryEntry, error) {
	return f.history, nil
}

type fakeProducts struct {
	stored     map[string]domain.CrawledProduct
	resetCalls int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{stored: map[string]domain.CrawledProduct{}}
}

func (f *fakeProducts) UpsertCrawledProduct(_ context.Context, p domain.CrawledProduct) (bool, error) {
	_, exists := f.stored[p.ProductCode]
	f.stored[p.ProductCode] = p
	return !exists, nil
}

func (f *fakeProducts) GetCrawledProduct(_ context.Context, code string) (domain.CrawledProduct, error) {
	p, ok := f.stored[code]
	if !ok {
		return p, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) ListCrawledProducts(context.Context, ports.CrawledProductFilter) ([]domain.CrawledProduct, error) {
	var out []domain.CrawledProduct
	for _, p := range f.stored {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) ResetNewFlags(_ context.Context) error {
	f.resetCalls++
	for code, p := range f.stored {
		p.IsNew = false
		f.stored[code] = p
	}
	return nil
}

func (f *fakeProducts) MarkAddedToCompetitor(_ context.Context, code string) error {
	p, ok := f.stored[code]
	if !ok {
		return domain.ErrNotFound
	}
	p.AddedToCompetitor = true
	f.stored[code] = p
	return nil
}

type funcSource func(ctx context.Context, run domain.CrawlRun) ([]domain.CrawledProduct, error)

func (fn funcSource) Fetch(ctx context.Context, run domain.CrawlRun) ([]domain.CrawledProduct, error) {
	return fn(ctx, run)
}

func staticSource(products ...domain.CrawledProduct) ProductSource {
	return funcSource(func(context.Context, domain.CrawlRun) ([]domain.CrawledProduct, error) {
		return products, nil
	})
}

func TestCollectorRecordsCounts(t *testing.T) {
	crawls := &fakeCrawls{run: domain.CrawlRun{ID: "crawl-1", Category: "skincare"}}
	products := newFakeProducts()
	c := Collector{
		Jobs:     &fakeJobs{},
		Crawls:   crawls,
		Products: products,
		Source: staticSource(
			domain.CrawledProduct{ProductCode: "A1", Name: "Dew Cream"},
			domain.CrawledProduct{ProductCode: "A2", Name: "Pearl Essence"},
		),
	}

	require.NoError(t, c.Process(context.Background(), "crawl-1"))
	assert.Equal(t, [2]int{2, 2}, crawls.counts)
	assert.Equal(t, [][2]int{{2, 2}}, crawls.recordedHistory)
	assert.Len(t, products.stored, 2)
}

func TestCollectorFirstCrawlFlagsNothingNew(t *testing.T) {
	crawls := &fakeCrawls{run: domain.CrawlRun{ID: "crawl-1"}}
	products := newFakeProducts()
	c := Collector{
		Jobs:     &fakeJobs{},
		Crawls:   crawls,
		Products: products,
		Source:   staticSource(domain.CrawledProduct{ProductCode: "A1", Name: "Dew Cream"}),
	}

	require.NoError(t, c.Process(context.Background(), "crawl-1"))
	assert.Zero(t, products.resetCalls, "no baseline to reset on the first collection")
	assert.False(t, products.stored["A1"].IsNew)
}

func TestCollectorFlagsNewEntriesAgainstBaseline(t *testing.T) {
	crawls := &fakeCrawls{
		run:     domain.CrawlRun{ID: "crawl-2", Category: "skincare"},
		history: []domain.CrawlHistoryEntry{{Category: "skincare"}},
	}
	products := newFakeProducts()
	products.stored["A1"] = domain.CrawledProduct{ProductCode: "A1", Name: "Dew Cream", IsNew: true}

	c := Collector{
		Jobs:     &fakeJobs{},
		Crawls:   crawls,
		Products: products,
		Source: staticSource(
			domain.CrawledProduct{ProductCode: "A1", Name: "Dew Cream"},
			domain.CrawledProduct{ProductCode: "B1", Name: "Glass Balm"},
		),
	}

	require.NoError(t, c.Process(context.Background(), "crawl-2"))
	assert.Equal(t, 1, products.resetCalls)
	assert.False(t, products.stored["A1"].IsNew, "seen before, stale flag cleared")
	assert.True(t, products.stored["B1"].IsNew)
	assert.Equal(t, [2]int{2, 1}, crawls.counts)
	assert.Equal(t, [][2]int{{2, 1}}, crawls.recordedHistory)
}

func TestCollectorSkipsCodelessEntries(t *testing.T) {
	crawls := &fakeCrawls{run: domain.CrawlRun{ID: "crawl-1"}}
	products := newFakeProducts()
	c := Collector{
		Jobs:     &fakeJobs{},
		Crawls:   crawls,
		Products: products,
		Source: staticSource(
			domain.CrawledProduct{ProductCode: "A1", Name: "Dew Cream"},
			domain.CrawledProduct{Name: "no code"},
		),
	}

	require.NoError(t, c.Process(context.Background(), "crawl-1"))
	assert.Len(t, products.stored, 1)
	assert.Equal(t, [2]int{2, 1}, crawls.counts, "total counts every fetched entry")
}

func TestProcessInlineCompletes(t *testing.T) {
	jobs := &fakeJobs{}
	var processed []string
	proc := funcProcessor(func(_ context.Context, crawlID string) error {
		processed = append(processed, crawlID)
		return nil
	})

	err := ProcessInline(context.Background(), jobs, proc, "crawl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"crawl-1"}, jobs.started)
	assert.Equal(t, []string{"crawl-1"}, processed)
	assert.Equal(t, []string{"job-crawl-1"}, jobs.completed)
	assert.Empty(t, jobs.failed)
}

func TestProcessInlineMarksFailure(t *testing.T) {
	jobs := &fakeJobs{}
	boom := errors.New("source unreachable")
	proc := funcProcessor(func(context.Context, string) error { return boom })

	err := ProcessInline(context.Background(), jobs, proc, "crawl-1")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, jobs.completed)
	assert.Equal(t, "source unreachable", jobs.failed["job-crawl-1"])
}
