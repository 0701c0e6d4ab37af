package article

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "articles"

type Repository interface {
	Upsert(ctx context.Context, a *Article) (UpsertResult, error)
	ContentHashes(ctx context.Context, ids []string) (map[string]string, error)
	Search(ctx context.Context, q Query) ([]Article, error)
	Recent(ctx context.Context, topic string, since time.Time, limit int) ([]Article, error)
}

type mongoRepository struct {
	col    *mongo.Collection
	logger *log.Logger
	now    func() time.Time
}

func NewMongoArticleRepository(db *mongo.Database, logger *log.Logger) (Repository, error) {
	repo := &mongoRepository{
		col:    db.Collection(CollectionName),
		logger: logger,
		now:    time.Now,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// ensureIndexes builds the text index used for relevance queries and the
// single-field indexes behind the exact-match filters. The text index reads
// its language from a field that is never written, so arbitrary article
// language codes cannot break inserts.
func (r *mongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "summary", Value: "text"},
				{Key: "rawText", Value: "text"},
			},
			Options: options.Index().
				SetName("article_text").
				SetWeights(bson.D{
					{Key: "title", Value: 3},
					{Key: "summary", Value: 2},
					{Key: "rawText", Value: 1},
				}).
				SetDefaultLanguage("english").
				SetLanguageOverride("textSearchLanguage"),
		},
		{Keys: bson.D{{Key: "publishedDate", Value: -1}}},
		{Keys: bson.D{{Key: "language", Value: 1}}},
		{Keys: bson.D{{Key: "sentimentOverall", Value: 1}}},
		{Keys: bson.D{{Key: "biasOverall", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	if err != nil && r.logger != nil {
		r.logger.Printf("failed to create article indexes: %v", err)
	}
	return err
}

// Upsert writes a in a single atomic statement keyed by its id. The filter
// only matches a stored document whose content hash differs, so an unchanged
// article turns the upsert into an insert that collides on _id; that
// collision is the "already indexed" signal and no separate read is needed.
func (r *mongoRepository) Upsert(ctx context.Context, a *Article) (UpsertResult, error) {
	now := r.now().UTC()

	filter := bson.M{
		"_id":         a.ID,
		"contentHash": bson.M{"$ne": a.ContentHash},
	}
	update := bson.M{
		"$set": bson.M{
			"url":              a.URL,
			"canonicalUrl":     a.CanonicalURL,
			"title":            a.Title,
			"sourceName":       a.SourceName,
			"publishedDate":    a.PublishedDate,
			"rawText":          a.RawText,
			"language":         a.Language,
			"sentimentOverall": a.SentimentOverall,
			"sentimentScore":   a.SentimentScore,
			"biasOverall":      a.BiasOverall,
			"biasScore":        a.BiasScore,
			"entities":         nonNilEntities(a.Entities),
			"summary":          a.Summary,
			"contentHash":      a.ContentHash,
			"analyzedAt":       a.AnalyzedAt,
			"modifiedAt":       now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return UpsertUnchanged, nil
		}
		return UpsertUnchanged, fmt.Errorf("upsert article %s: %w", a.ID, err)
	}

	switch {
	case res.UpsertedCount > 0:
		if r.logger != nil {
			r.logger.Printf("indexed new article: %s", a.ID)
		}
		return UpsertCreated, nil
	case res.MatchedCount > 0:
		if r.logger != nil {
			r.logger.Printf("re-indexed changed article: %s", a.ID)
		}
		return UpsertUpdated, nil
	default:
		return UpsertUnchanged, nil
	}
}

func (r *mongoRepository) ContentHashes(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.col.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "contentHash": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup content hashes: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID          string `bson:"_id"`
			ContentHash string `bson:"contentHash"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode content hash: %w", err)
		}
		out[doc.ID] = doc.ContentHash
	}
	return out, cur.Err()
}

func (r *mongoRepository) Search(ctx context.Context, q Query) ([]Article, error) {
	filter := filterDocument(q.Filter)
	opts := options.Find().SetLimit(int64(q.EffectiveLimit()))

	text := strings.TrimSpace(q.Text)
	if text != "" {
		filter["$text"] = bson.M{"$search": text}
	}

	if text != "" && q.Sort != SortRecency {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "publishedDate", Value: -1},
		})
	} else {
		opts.SetSort(bson.D{{Key: "publishedDate", Value: -1}})
	}

	return r.find(ctx, filter, opts)
}

// Recent returns articles mentioning topic as a phrase, published at or after
// since, newest first.
func (r *mongoRepository) Recent(ctx context.Context, topic string, since time.Time, limit int) ([]Article, error) {
	topic = strings.TrimSpace(strings.ReplaceAll(topic, `"`, " "))
	if topic == "" {
		return []Article{}, nil
	}
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	filter := topicFilter(topic)
	filter["publishedDate"] = bson.M{"$gte": since}
	opts := options.Find().
		SetSort(bson.D{{Key: "publishedDate", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

func (r *mongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Article, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer cur.Close(ctx)

	out := []Article{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return out, nil
}

func filterDocument(f Filter) bson.M {
	doc := bson.M{}
	if f.Language != nil {
		doc["language"] = *f.Language
	}
	if f.Sentiment != nil {
		doc["sentimentOverall"] = *f.Sentiment
	}
	if f.Bias != nil {
		doc["biasOverall"] = *f.Bias
	}
	return doc
}

func nonNilEntities(e []Entity) []Entity {
	if e == nil {
		return []Entity{}
	}
	return e
}
