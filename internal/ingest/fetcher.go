package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/newsradar/newsradar/internal/config"

	"golang.org/x/sync/errgroup"
)

// Fetcher pulls every configured feed through a bounded worker pool.
type Fetcher struct {
	client  FeedClient
	workers int
	timeout time.Duration
	logger  *log.Logger
}

func NewFetcher(client FeedClient, workers int, timeout time.Duration, logger *log.Logger) *Fetcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{client: client, workers: workers, timeout: timeout, logger: logger}
}

// FetchAll returns the items of all feeds that succeeded, in source order,
// plus one FetchError per feed that did not. A failing feed never stops the
// others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.FeedSource, limit int) ([]RawArticle, []*FetchError) {
	perFeed := make([][]RawArticle, len(sources))
	var (
		mu   sync.Mutex
		errs []*FetchError
	)

	var g errgroup.Group
	g.SetLimit(f.workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			items, err := f.fetchOne(ctx, src, limit)
			if err != nil {
				f.logger.Printf("ingest: feed %s failed: %v", src.Name, err)
				mu.Lock()
				errs = append(errs, &FetchError{Feed: src.Name, Err: err})
				mu.Unlock()
				return nil
			}
			perFeed[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var out []RawArticle
	for _, items := range perFeed {
		out = append(out, items...)
	}
	return out, errs
}

func (f *Fetcher) fetchOne(ctx context.Context, src config.FeedSource, limit int) ([]RawArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.client.Fetch(ctx, src, limit)
}
