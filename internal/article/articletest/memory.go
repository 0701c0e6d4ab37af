// Package articletest provides an in-memory article.Repository for tests
// that do not need a Mongo server.
package articletest

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newsradar/newsradar/internal/article"
)

var _ article.Repository = (*Memory)(nil)

type Memory struct {
	mu   sync.Mutex
	docs map[string]article.Article

	// Fail, when set, is returned by every call.
	Fail error
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]article.Article{}}
}

func (m *Memory) Upsert(ctx context.Context, a *article.Article) (article.UpsertResult, error) {
	if err := m.check(ctx); err != nil {
		return article.UpsertUnchanged, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.docs[a.ID]
	if ok && prev.ContentHash == a.ContentHash {
		return article.UpsertUnchanged, nil
	}
	doc := *a
	doc.ModifiedAt = time.Now().UTC()
	if ok {
		doc.CreatedAt = prev.CreatedAt
		m.docs[a.ID] = doc
		return article.UpsertUpdated, nil
	}
	doc.CreatedAt = doc.ModifiedAt
	m.docs[a.ID] = doc
	return article.UpsertCreated, nil
}

func (m *Memory) ContentHashes(ctx context.Context, ids []string) (map[string]string, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]string{}
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out[id] = d.ContentHash
		}
	}
	return out, nil
}

// Search scores documents by how many query terms appear in the title,
// summary and text, mirroring the weights of the Mongo text index.
func (m *Memory) Search(ctx context.Context, q article.Query) ([]article.Article, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(q.Text))

	var out []article.Article
	for _, d := range m.All() {
		if !q.Filter.Matches(&d) {
			continue
		}
		if len(terms) > 0 {
			d.Score = score(&d, terms)
			if d.Score == 0 {
				continue
			}
		}
		out = append(out, d)
	}

	byRelevance := len(terms) > 0 && q.Sort != article.SortRecency
	sort.SliceStable(out, func(i, j int) bool {
		if byRelevance && out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PublishedDate.After(out[j].PublishedDate)
	})
	if n := q.EffectiveLimit(); len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []article.Article{}
	}
	return out, nil
}

func (m *Memory) Recent(ctx context.Context, topic string, since time.Time, limit int) ([]article.Article, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ReplaceAll(topic, `"`, " "))
	out := []article.Article{}
	if len(words) == 0 {
		return out, nil
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	phrase := regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)

	for _, d := range m.All() {
		if d.PublishedDate.Before(since) {
			continue
		}
		if phrase.MatchString(d.Title) || phrase.MatchString(d.Summary) || phrase.MatchString(d.RawText) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedDate.After(out[j].PublishedDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns a snapshot of every stored article ordered by id.
func (m *Memory) All() []article.Article {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]article.Article, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Fail
}

func score(a *article.Article, terms []string) float64 {
	fields := []struct {
		text   string
		weight float64
	}{
		{a.Title, 3},
		{a.Summary, 2},
		{a.RawText, 1},
	}
	var s float64
	for _, t := range terms {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f.text), t) {
				s += f.weight
			}
		}
	}
	return s
}
