package ingest

import (
	"context"
	"log"

	"github.com/newsradar/newsradar/internal/article"
)

// Candidate is a raw article with its identity resolved.
type Candidate struct {
	RawArticle
	ID           string
	CanonicalURL string
	ContentHash  string
}

type hashLookup interface {
	ContentHashes(ctx context.Context, ids []string) (map[string]string, error)
}

// Deduplicator drops repeats within a run and articles whose stored
// content is unchanged. It only saves work: Repository.Upsert is what
// guarantees one document per canonical URL.
type Deduplicator struct {
	store  hashLookup
	logger *log.Logger
}

func NewDeduplicator(store hashLookup, logger *log.Logger) *Deduplicator {
	if logger == nil {
		logger = log.Default()
	}
	return &Deduplicator{store: store, logger: logger}
}

func (d *Deduplicator) Filter(ctx context.Context, raws []RawArticle) ([]Candidate, int) {
	skipped := 0
	seen := make(map[string]struct{}, len(raws))
	batch := make([]Candidate, 0, len(raws))

	for _, raw := range raws {
		canonical, err := article.CanonicalURL(raw.URL)
		if err != nil {
			d.logger.Printf("ingest: dropping %q: %v", raw.URL, err)
			skipped++
			continue
		}
		id := article.IDFor(canonical)
		if _, ok := seen[id]; ok {
			skipped++
			continue
		}
		seen[id] = struct{}{}

		batch = append(batch, Candidate{
			RawArticle:   raw,
			ID:           id,
			CanonicalURL: canonical,
			ContentHash:  article.ContentHash(raw.Title, raw.Text),
		})
	}

	if len(batch) == 0 {
		return batch, skipped
	}

	ids := make([]string, len(batch))
	for i, c := range batch {
		ids[i] = c.ID
	}
	stored, err := d.store.ContentHashes(ctx, ids)
	if err != nil {
		d.logger.Printf("ingest: content hash lookup failed, indexing all %d candidates: %v", len(batch), err)
		return batch, skipped
	}

	out := batch[:0]
	for _, c := range batch {
		if h, ok := stored[c.ID]; ok && h == c.ContentHash {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}
