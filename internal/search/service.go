// Package search answers filtered free-text queries over indexed articles.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/newsradar/newsradar/internal/article"
	"github.com/newsradar/newsradar/internal/cache"
)

const displayEntities = 5

type searcher interface {
	Search(ctx context.Context, q article.Query) ([]article.Article, error)
}

type ArticleView struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	SourceName     string            `json:"source_name"`
	PublishedDate  time.Time         `json:"published_date"`
	Language       string            `json:"language"`
	Sentiment      article.Sentiment `json:"sentiment"`
	SentimentScore float64           `json:"sentiment_score"`
	Bias           article.Bias      `json:"bias"`
	BiasScore      float64           `json:"bias_score"`
	Entities       []article.Entity  `json:"entities"`
	Summary        string            `json:"summary"`
	OriginalText   string            `json:"original_text"`
	Score          float64           `json:"score,omitempty"`
}

type Response struct {
	Count   int           `json:"count"`
	Results []ArticleView `json:"results"`
	Error   string        `json:"error,omitempty"`
}

type Service struct {
	repo    searcher
	cache   cache.Cache
	ttl     time.Duration
	maxSize int
	logger  *log.Logger
}

// NewService wires the query path. A nil cache disables result caching.
func NewService(repo searcher, c cache.Cache, maxSize int, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if maxSize <= 0 || maxSize > article.MaxQueryLimit {
		maxSize = article.MaxQueryLimit
	}
	return &Service{repo: repo, cache: c, ttl: ttl, maxSize: maxSize, logger: logger}
}

// Normalize clamps the size into [0, maxSize] and picks a sort order.
func (s *Service) Normalize(req Request) Request {
	req.Text = strings.Join(strings.Fields(req.Text), " ")
	req.Size = max(0, min(req.Size, s.maxSize))
	if req.Sort == "" {
		req.Sort = article.SortRecency
		if req.Text != "" {
			req.Sort = article.SortRelevance
		}
	}
	return req
}

// Search never fails: backend errors come back as an empty result set with
// Error set. Every result satisfies req.Filter and there are at most
// req.Size of them after normalization.
func (s *Service) Search(ctx context.Context, req Request) Response {
	req = s.Normalize(req)
	if req.Size == 0 {
		return Response{Count: 0, Results: []ArticleView{}}
	}
	key := cacheKey(req)

	if resp, ok := s.cached(ctx, key); ok {
		return resp
	}

	docs, err := s.repo.Search(ctx, article.Query{
		Text:   req.Text,
		Filter: req.Filter,
		Sort:   req.Sort,
		Limit:  req.Size,
	})
	if err != nil {
		s.logger.Printf("search: query %q failed: %v", req.Text, err)
		return Response{Count: 0, Results: []ArticleView{}, Error: "search temporarily unavailable"}
	}

	results := make([]ArticleView, 0, min(len(docs), req.Size))
	for i := range docs {
		if len(results) == req.Size {
			break
		}
		if !req.Filter.Matches(&docs[i]) {
			continue
		}
		results = append(results, view(&docs[i]))
	}

	resp := Response{Count: len(results), Results: results}
	s.store(ctx, key, resp)
	return resp
}

func (s *Service) cached(ctx context.Context, key string) (Response, bool) {
	if s.cache == nil {
		return Response{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Printf("search: cache read failed: %v", err)
		return Response{}, false
	}
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

func (s *Service) store(ctx context.Context, key string, resp Response) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Printf("search: cache write failed: %v", err)
	}
}

func cacheKey(req Request) string {
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return "search:" + hex.EncodeToString(sum[:])
}

func view(a *article.Article) ArticleView {
	entities := a.TopEntities(displayEntities)
	if entities == nil {
		entities = []article.Entity{}
	}
	return ArticleView{
		ID:             a.ID,
		URL:            a.URL,
		Title:          a.Title,
		SourceName:     a.SourceName,
		PublishedDate:  a.PublishedDate,
		Language:       a.Language,
		Sentiment:      a.SentimentOverall,
		SentimentScore: a.SentimentScore,
		Bias:           a.BiasOverall,
		BiasScore:      a.BiasScore,
		Entities:       entities,
		Summary:        a.Summary,
		OriginalText:   a.RawText,
		Score:          a.Score,
	}
}
