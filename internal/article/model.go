package article

import (
	"fmt"
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

type Bias string

const (
	BiasNeutral Bias = "neutral"
	BiasLeft    Bias = "left-leaning"
	BiasRight   Bias = "right-leaning"
	BiasUnknown Bias = "unknown"
)

// ParseSentiment accepts the wire names, case-insensitively.
func ParseSentiment(s string) (Sentiment, error) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentUnknown:
		return v, nil
	}
	return "", fmt.Errorf("invalid sentiment %q", s)
}

// ParseBias accepts the wire names, case-insensitively.
func ParseBias(s string) (Bias, error) {
	switch v := Bias(strings.ToLower(strings.TrimSpace(s))); v {
	case BiasNeutral, BiasLeft, BiasRight, BiasUnknown:
		return v, nil
	}
	return "", fmt.Errorf("invalid bias %q", s)
}

type Entity struct {
	Name     string  `bson:"name" json:"name"`
	Type     string  `bson:"type" json:"type"`
	Salience float64 `bson:"salience" json:"salience"`
}

// Article is one analyzed, indexed news item. ID is the hex SHA-256 of the
// canonical URL, so a URL maps to exactly one stored document.
type Article struct {
	ID               string    `bson:"_id" json:"id"`
	URL              string    `bson:"url" json:"url"`
	CanonicalURL     string    `bson:"canonicalUrl" json:"canonical_url"`
	Title            string    `bson:"title" json:"title"`
	SourceName       string    `bson:"sourceName" json:"source_name"`
	PublishedDate    time.Time `bson:"publishedDate" json:"published_date"`
	RawText          string    `bson:"rawText" json:"raw_text"`
	Language         string    `bson:"language" json:"language"`
	SentimentOverall Sentiment `bson:"sentimentOverall" json:"sentiment_overall"`
	SentimentScore   float64   `bson:"sentimentScore" json:"sentiment_score"`
	BiasOverall      Bias      `bson:"biasOverall" json:"bias_overall"`
	BiasScore        float64   `bson:"biasScore" json:"bias_score"`
	Entities         []Entity  `bson:"entities" json:"entities"`
	Summary          string    `bson:"summary" json:"summary"`
	ContentHash      string    `bson:"contentHash" json:"content_hash"`
	AnalyzedAt       time.Time `bson:"analyzedAt" json:"analyzed_at"`
	CreatedAt        time.Time `bson:"createdAt,omitempty" json:"created_at"`
	ModifiedAt       time.Time `bson:"modifiedAt" json:"modified_at"`

	// Score is the text relevance of a search hit; never persisted.
	Score float64 `bson:"score,omitempty" json:"score,omitempty"`
}

// TopEntities returns at most n entities in stored (salience) order.
func (a *Article) TopEntities(n int) []Entity {
	if n <= 0 || len(a.Entities) <= n {
		return a.Entities
	}
	return a.Entities[:n]
}

// Filter holds exact-match constraints. A nil field means unconstrained.
type Filter struct {
	Language  *string
	Sentiment *Sentiment
	Bias      *Bias
}

// Matches reports whether a satisfies every constraint in f.
func (f Filter) Matches(a *Article) bool {
	if f.Language != nil && a.Language != *f.Language {
		return false
	}
	if f.Sentiment != nil && a.SentimentOverall != *f.Sentiment {
		return false
	}
	if f.Bias != nil && a.BiasOverall != *f.Bias {
		return false
	}
	return true
}

type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortRecency   SortOrder = "recency"
)

// MaxQueryLimit bounds any single read from the index.
const MaxQueryLimit = 200

type Query struct {
	Text   string
	Filter Filter
	Sort   SortOrder
	Limit  int
}

// EffectiveLimit applies the hard server-side cap.
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return q.Limit
}

type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertCreated
	UpsertUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}
