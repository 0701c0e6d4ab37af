package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/newsradar/newsradar/internal/analysis"
	"github.com/newsradar/newsradar/internal/article"
	"github.com/newsradar/newsradar/internal/config"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const finalizeTimeout = 10 * time.Second

// ticker is an interface so we can swap out time.Ticker in tests.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type tickerFactory func(d time.Duration) ticker

// timeTicker is the real implementation backed by time.Ticker.
type timeTicker struct {
	*time.Ticker
}

func (t *timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func (t *timeTicker) Stop() {
	t.Ticker.Stop()
}

type Options struct {
	Sources           []config.FeedSource
	DefaultLimit      int
	RunTimeout        time.Duration
	AnalysisWorkers   int
	IndexRetries      int
	IndexRetryBackoff time.Duration
	MaxPolls          int // -1 is unlimited
	PollLimit         int
}

type Service struct {
	repo      article.Repository
	fetcher   *Fetcher
	dedup     *Deduplicator
	analyzer  analysis.Analyzer
	runs      RunLog
	opts      Options
	logger    *log.Logger
	newTicker tickerFactory
	now       func() time.Time
	newID     func() string
}

func NewService(repo article.Repository, fetcher *Fetcher, analyzer analysis.Analyzer, runs RunLog, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.AnalysisWorkers <= 0 {
		opts.AnalysisWorkers = 1
	}

	return &Service{
		repo:     repo,
		fetcher:  fetcher,
		dedup:    NewDeduplicator(repo, logger),
		analyzer: analyzer,
		runs:     runs,
		opts:     opts,
		logger:   logger,
		newTicker: func(d time.Duration) ticker {
			return &timeTicker{time.NewTicker(d)}
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// runState collects counters from the analysis workers.
type runState struct {
	mu  sync.Mutex
	run *Run
}

func (r *runState) add(fn func(run *Run)) {
	r.mu.Lock()
	fn(r.run)
	r.mu.Unlock()
}

// Run executes one fetch, dedup, analyze and index pass bounded by the
// configured run timeout. Feed and index failures end up in the report;
// work finished before the deadline is kept and the run is marked partial.
// The error is non-nil only when ctx was already done.
func (s *Service) Run(ctx context.Context, limitPerFeed int) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limitPerFeed <= 0 {
		limitPerFeed = s.opts.DefaultLimit
	}

	run := &Run{
		ID:             s.newID(),
		StartedAt:      s.now().UTC(),
		LimitPerFeed:   limitPerFeed,
		FeedsAttempted: len(s.opts.Sources),
		Status:         RunRunning,
		Errors:         []RunError{},
	}
	if err := s.runs.Start(ctx, run); err != nil {
		s.logger.Printf("ingest: %v", err)
	}
	s.logger.Printf("ingest: run %s starting (%d feeds, limit %d)", run.ID, len(s.opts.Sources), limitPerFeed)

	runCtx := ctx
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	raws, fetchErrs := s.fetcher.FetchAll(runCtx, s.opts.Sources, limitPerFeed)
	run.ArticlesFetched = len(raws)
	for _, fe := range fetchErrs {
		run.Errors = append(run.Errors, RunError{Kind: "fetch", Feed: fe.Feed, Message: fe.Err.Error()})
	}

	candidates, skipped := s.dedup.Filter(runCtx, raws)
	run.ArticlesSkipped = skipped

	state := &runState{run: run}
	s.process(runCtx, candidates, state)

	run.Status = RunCompleted
	if runCtx.Err() != nil {
		run.Status = RunPartial
	}
	run.FinishedAt = s.now().UTC()

	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := s.runs.Finish(finCtx, run); err != nil {
		s.logger.Printf("ingest: %v", err)
	}

	s.logger.Printf("ingest: run %s %s: fetched=%d skipped=%d indexed=%d errors=%d",
		run.ID, run.Status, run.ArticlesFetched, run.ArticlesSkipped, run.ArticlesIndexed, len(run.Errors))
	return run, nil
}

func (s *Service) process(ctx context.Context, candidates []Candidate, state *runState) {
	var g errgroup.Group
	g.SetLimit(s.opts.AnalysisWorkers)

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			s.indexOne(ctx, c, state)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) indexOne(ctx context.Context, c Candidate, state *runState) {
	if ctx.Err() != nil {
		return
	}

	res, err := s.analyzer.Analyze(ctx, c.Text, c.Language)
	if err != nil {
		var aerr *analysis.Error
		if !errors.As(err, &aerr) {
			// cancelled mid-analysis: leave it for the next run
			return
		}
		state.add(func(run *Run) { run.AnalysisFailures++ })
	}

	a := &article.Article{
		ID:               c.ID,
		URL:              c.URL,
		CanonicalURL:     c.CanonicalURL,
		Title:            c.Title,
		SourceName:       c.SourceName,
		PublishedDate:    c.PublishedDate,
		RawText:          c.Text,
		Language:         c.Language,
		SentimentOverall: res.Sentiment,
		SentimentScore:   res.SentimentScore,
		BiasOverall:      res.Bias,
		BiasScore:        res.BiasScore,
		Entities:         res.Entities,
		Summary:          res.Summary,
		ContentHash:      c.ContentHash,
		AnalyzedAt:       s.now().UTC(),
	}

	var result article.UpsertResult
	r := retrier.New(retrier.ExponentialBackoff(s.opts.IndexRetries, s.opts.IndexRetryBackoff), nil)
	err = r.RunCtx(ctx, func(ctx context.Context) error {
		var uerr error
		result, uerr = s.repo.Upsert(ctx, a)
		return uerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		werr := &IndexWriteError{Feed: c.SourceName, ArticleID: c.ID, Err: err}
		s.logger.Printf("ingest: %v", werr)
		state.add(func(run *Run) {
			run.Errors = append(run.Errors, RunError{Kind: "index", Feed: c.SourceName, Message: werr.Error()})
		})
		return
	}

	state.add(func(run *Run) {
		if result == article.UpsertUnchanged {
			run.ArticlesSkipped++
			return
		}
		run.ArticlesIndexed++
	})
}

// StartPolling runs ingestion on every tick with the poll limit until ctx
// is cancelled or MaxPolls runs have completed.
func (s *Service) StartPolling(ctx context.Context, interval time.Duration) {
	t := s.newTicker(interval)
	defer t.Stop()

	pollCount := 0

	s.logger.Printf("ingest: polling every %v...", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("ingest: poller stopping, context cancelled")
			return

		case <-t.C():
			pollCount++
			s.logger.Printf("ingest: poll #%d starting ingestion...", pollCount)

			if _, err := s.Run(ctx, s.opts.PollLimit); err != nil {
				s.logger.Printf("ingest: poll error: %v", err)
			}

			if s.opts.MaxPolls > 0 && pollCount >= s.opts.MaxPolls {
				s.logger.Printf("ingest: poller stopping after %d polls (max reached)", pollCount)
				return
			}
		}
	}
}
