package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/newsradar/newsradar/internal/analysis"
	"github.com/newsradar/newsradar/internal/article"
	"github.com/newsradar/newsradar/internal/article/articletest"
	"github.com/newsradar/newsradar/internal/config"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockFeedClient struct {
	mock.Mock
}

func (m *mockFeedClient) Fetch(ctx context.Context, src config.FeedSource, limit int) ([]RawArticle, error) {
	args := m.Called(ctx, src, limit)
	items, _ := args.Get(0).([]RawArticle)
	return items, args.Error(1)
}

type mockArticleRepo struct {
	mock.Mock
}

func (m *mockArticleRepo) Upsert(ctx context.Context, a *article.Article) (article.UpsertResult, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(article.UpsertResult), args.Error(1)
}

func (m *mockArticleRepo) ContentHashes(ctx context.Context, ids []string) (map[string]string, error) {
	args := m.Called(ctx, ids)
	hashes, _ := args.Get(0).(map[string]string)
	return hashes, args.Error(1)
}

func (m *mockArticleRepo) Search(ctx context.Context, q article.Query) ([]article.Article, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]article.Article), args.Error(1)
}

func (m *mockArticleRepo) Recent(ctx context.Context, topic string, since time.Time, limit int) ([]article.Article, error) {
	args := m.Called(ctx, topic, since, limit)
	return args.Get(0).([]article.Article), args.Error(1)
}

type fakeRunLog struct {
	mu       sync.Mutex
	started  []Run
	finished []Run
}

func (f *fakeRunLog) Start(_ context.Context, run *Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, *run)
	return nil
}

func (f *fakeRunLog) Finish(_ context.Context, run *Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, *run)
	return nil
}

func (f *fakeRunLog) finishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finished)
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

var (
	feedA = config.FeedSource{Name: "Wire A", URL: "https://a.example.com/rss", Language: "en"}
	feedB = config.FeedSource{Name: "Wire B", URL: "https://b.example.com/rss", Language: "en"}
	feedC = config.FeedSource{Name: "Wire C", URL: "https://c.example.com/rss", Language: "en"}
)

func rawItems(feed config.FeedSource, n int) []RawArticle {
	out := make([]RawArticle, n)
	for i := range out {
		out[i] = RawArticle{
			URL:           fmt.Sprintf("%s/story/%d", feed.URL, i),
			Title:         fmt.Sprintf("%s story %d", feed.Name, i),
			SourceName:    feed.Name,
			PublishedDate: time.Date(2025, 1, 1, 12, i, 0, 0, time.UTC),
			Text:          fmt.Sprintf("Markets moved on day %d as investors weighed the outlook.", i),
			Language:      "en",
		}
	}
	return out
}

type ServiceSuite struct {
	suite.Suite

	repo   *articletest.Memory
	client *mockFeedClient
	runs   *fakeRunLog

	logBuf *bytes.Buffer
	logger *log.Logger

	opts Options
	svc  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.repo = articletest.NewMemory()
	s.client = &mockFeedClient{}
	s.runs = &fakeRunLog{}

	s.logBuf = &bytes.Buffer{}
	s.logger = log.New(s.logBuf, "", 0)

	s.opts = Options{
		Sources:         []config.FeedSource{feedA, feedB, feedC},
		DefaultLimit:    20,
		RunTimeout:      5 * time.Second,
		AnalysisWorkers: 3,
		IndexRetries:    2,
		MaxPolls:        -1,
		PollLimit:       5,
	}
	s.svc = s.newService(s.repo)
}

func (s *ServiceSuite) newService(repo article.Repository) *Service {
	fetcher := NewFetcher(s.client, 2, time.Second, s.logger)
	svc := NewService(repo, fetcher, analysis.NewLexicon(), s.runs, s.opts, s.logger)
	svc.newID = func() string { return "run-1" }
	return svc
}

// TestRun_FeedFailureDoesNotStopOthers one broken feed yields exactly one FetchError
func (s *ServiceSuite) TestRun_FeedFailureDoesNotStopOthers() {
	s.client.On("Fetch", mock.Anything, feedA, 20).Return(rawItems(feedA, 3), nil).Once()
	s.client.On("Fetch", mock.Anything, feedB, 20).Return(nil, errors.New("connection refused")).Once()
	s.client.On("Fetch", mock.Anything, feedC, 20).Return(rawItems(feedC, 2), nil).Once()

	run, err := s.svc.Run(context.Background(), 0)

	s.Require().NoError(err)
	s.client.AssertExpectations(s.T())

	s.Equal(RunCompleted, run.Status)
	s.Equal(3, run.FeedsAttempted)
	s.Equal(5, run.ArticlesFetched)
	s.Equal(5, run.ArticlesIndexed)
	s.Require().Len(run.Errors, 1)
	s.Equal("Wire B", run.Errors[0].Feed)
	s.Equal("fetch", run.Errors[0].Kind)
	s.Contains(run.Errors[0].Message, "connection refused")
	s.Equal(5, s.repo.Len())
}

// TestRun_Idempotent a second run over the same items indexes nothing new
func (s *ServiceSuite) TestRun_Idempotent() {
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(s.repo)
	s.client.On("Fetch", mock.Anything, feedA, 20).Return(rawItems(feedA, 4), nil).Twice()

	first, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)
	s.Equal(4, first.ArticlesIndexed)
	before := s.repo.All()

	second, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	s.Equal(0, second.ArticlesIndexed)
	s.Equal(4, second.ArticlesSkipped)
	s.Equal(before, s.repo.All())
}

// TestRun_ChangedContentIsReindexed an edited story updates its one document
func (s *ServiceSuite) TestRun_ChangedContentIsReindexed() {
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(s.repo)

	items := rawItems(feedA, 1)
	edited := rawItems(feedA, 1)
	edited[0].Text = "Shares crashed after the fraud investigation widened."

	s.client.On("Fetch", mock.Anything, feedA, 20).Return(items, nil).Once()
	s.client.On("Fetch", mock.Anything, feedA, 20).Return(edited, nil).Once()

	_, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)
	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	s.Equal(1, run.ArticlesIndexed)
	s.Require().Equal(1, s.repo.Len())
	s.Equal(article.SentimentNegative, s.repo.All()[0].SentimentOverall)
}

// TestRun_CollapsesEquivalentURLs tracking params and www. map to one article
func (s *ServiceSuite) TestRun_CollapsesEquivalentURLs() {
	s.opts.Sources = []config.FeedSource{feedA, feedB}
	s.svc = s.newService(s.repo)

	a := rawItems(feedA, 1)
	a[0].URL = "https://www.example.com/story?utm_source=a"
	b := rawItems(feedB, 1)
	b[0].URL = "http://example.com/story/"

	s.client.On("Fetch", mock.Anything, feedA, 20).Return(a, nil).Once()
	s.client.On("Fetch", mock.Anything, feedB, 20).Return(b, nil).Once()

	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	s.Equal(2, run.ArticlesFetched)
	s.Equal(1, run.ArticlesIndexed)
	s.Equal(1, run.ArticlesSkipped)
	s.Equal(1, s.repo.Len())
}

// TestRun_IndexWriteFailureIsReported retries are exhausted then recorded
func (s *ServiceSuite) TestRun_IndexWriteFailureIsReported() {
	repo := &mockArticleRepo{}
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(repo)

	s.client.On("Fetch", mock.Anything, feedA, 20).Return(rawItems(feedA, 1), nil).Once()
	repo.On("ContentHashes", mock.Anything, mock.Anything).Return(map[string]string{}, nil).Once()
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*article.Article")).
		Return(article.UpsertUnchanged, errors.New("db down")).
		Times(3)

	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	repo.AssertExpectations(s.T())
	s.Equal(RunCompleted, run.Status)
	s.Equal(0, run.ArticlesIndexed)
	s.Require().Len(run.Errors, 1)
	s.Equal("index", run.Errors[0].Kind)
	s.Contains(run.Errors[0].Message, "db down")
	s.Contains(s.logBuf.String(), "ingest: index")
}

// TestRun_HashLookupFailureStillIndexes the write path stays authoritative
func (s *ServiceSuite) TestRun_HashLookupFailureStillIndexes() {
	repo := &mockArticleRepo{}
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(repo)

	s.client.On("Fetch", mock.Anything, feedA, 20).Return(rawItems(feedA, 2), nil).Once()
	repo.On("ContentHashes", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*article.Article")).Return(article.UpsertCreated, nil).Twice()

	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	repo.AssertExpectations(s.T())
	s.Equal(2, run.ArticlesIndexed)
	s.Contains(s.logBuf.String(), "content hash lookup failed")
}

// TestRun_DeadlineMarksPartial a hung feed cannot hold the run past its timeout
func (s *ServiceSuite) TestRun_DeadlineMarksPartial() {
	s.opts.Sources = []config.FeedSource{feedA}
	s.opts.RunTimeout = 50 * time.Millisecond
	s.svc = s.newService(s.repo)
	s.svc.fetcher.timeout = 0

	s.client.On("Fetch", mock.Anything, feedA, 20).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).
		Once()

	start := time.Now()
	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	s.Less(time.Since(start), 2*time.Second)
	s.Equal(RunPartial, run.Status)
	s.Require().Len(run.Errors, 1)
	s.Equal(1, s.runs.finishedCount(), "run is finalized even after the deadline")
}

// TestRun_UnsupportedLanguageIsIndexedAsUnknown analysis failures keep the article
func (s *ServiceSuite) TestRun_UnsupportedLanguageIsIndexedAsUnknown() {
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(s.repo)

	items := rawItems(feedA, 1)
	items[0].Language = "es"
	s.client.On("Fetch", mock.Anything, feedA, 20).Return(items, nil).Once()

	run, err := s.svc.Run(context.Background(), 20)
	s.Require().NoError(err)

	s.Equal(1, run.ArticlesIndexed)
	s.Equal(1, run.AnalysisFailures)
	s.Require().Equal(1, s.repo.Len())
	stored := s.repo.All()[0]
	s.Equal(article.SentimentUnknown, stored.SentimentOverall)
	s.Equal(article.BiasUnknown, stored.BiasOverall)
	s.NotEmpty(stored.Summary)
}

// TestRun_RecordsRunLog the report is written at start and once at the end
func (s *ServiceSuite) TestRun_RecordsRunLog() {
	s.opts.Sources = []config.FeedSource{feedA}
	s.svc = s.newService(s.repo)
	s.client.On("Fetch", mock.Anything, feedA, 7).Return(rawItems(feedA, 2), nil).Once()

	run, err := s.svc.Run(context.Background(), 7)
	s.Require().NoError(err)

	s.Equal("run-1", run.ID)
	s.Require().Len(s.runs.started, 1)
	s.Equal(RunRunning, s.runs.started[0].Status)
	s.Equal(7, s.runs.started[0].LimitPerFeed)
	s.Require().Len(s.runs.finished, 1)
	s.Equal(RunCompleted, s.runs.finished[0].Status)
	s.Equal(2, s.runs.finished[0].ArticlesIndexed)
	s.False(s.runs.finished[0].FinishedAt.IsZero())
}

func (s *ServiceSuite) TestRun_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := s.svc.Run(ctx, 20)

	s.ErrorIs(err, context.Canceled)
	s.Nil(run)
	s.client.AssertNotCalled(s.T(), "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

// TestStartPolling_StopsAfterMaxPolls stop after maxPolls and run that many times.
func (s *ServiceSuite) TestStartPolling_StopsAfterMaxPolls() {
	maxPolls := 2
	s.opts.Sources = []config.FeedSource{feedA}
	s.opts.MaxPolls = maxPolls
	s.svc = s.newService(s.repo)

	tickCh := make(chan time.Time)
	s.svc.newTicker = func(d time.Duration) ticker {
		return &fakeTicker{ch: tickCh}
	}

	s.client.On("Fetch", mock.Anything, feedA, 5).Return(rawItems(feedA, 1), nil).Times(maxPolls)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.svc.StartPolling(ctx, time.Second)
		close(done)
	}()

	tickCh <- time.Now()
	tickCh <- time.Now()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("poller did not stop")
	}

	s.client.AssertExpectations(s.T())
	s.Equal(maxPolls, s.runs.finishedCount())
	s.Contains(s.logBuf.String(), "poller stopping after 2 polls")
}

func (s *ServiceSuite) TestStartPolling_StopsOnCancel() {
	tickCh := make(chan time.Time)
	s.svc.newTicker = func(d time.Duration) ticker {
		return &fakeTicker{ch: tickCh}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.svc.StartPolling(ctx, time.Second)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("poller did not stop")
	}
	s.Contains(s.logBuf.String(), "context cancelled")
}
