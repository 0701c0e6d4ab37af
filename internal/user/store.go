package user

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store interface {
	FindOrCreate(ctx context.Context, email string) (User, bool, error)
	ReplaceWatchlist(ctx context.Context, email string, topics []string) error
	ListWatching(ctx context.Context) ([]User, error)
}

type mongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{col: db.Collection(CollectionName), now: time.Now}
}

// FindOrCreate creates the user on first sight and returns the stored
// record. Two concurrent first logins can race on the upsert; the loser
// sees a duplicate key and simply retries as a plain lookup.
func (s *mongoStore) FindOrCreate(ctx context.Context, email string) (User, bool, error) {
	created, err := s.upsert(ctx, email)
	if mongo.IsDuplicateKeyError(err) {
		created, err = s.upsert(ctx, email)
	}
	if err != nil {
		return User{}, false, err
	}

	var u User
	if err := s.col.FindOne(ctx, bson.M{"_id": email}).Decode(&u); err != nil {
		return User{}, false, fmt.Errorf("load user: %w", err)
	}
	if u.Watchlist == nil {
		u.Watchlist = []string{}
	}
	return u, created, nil
}

func (s *mongoStore) upsert(ctx context.Context, email string) (bool, error) {
	now := s.now().UTC()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": email},
		bson.M{"$setOnInsert": bson.M{
			"watchlist": []string{},
			"createdAt": now,
			"updatedAt": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// ReplaceWatchlist swaps the whole list in one document write.
func (s *mongoStore) ReplaceWatchlist(ctx context.Context, email string, topics []string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": email},
		bson.M{"$set": bson.M{"watchlist": topics, "updatedAt": s.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("replace watchlist: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) ListWatching(ctx context.Context) ([]User, error) {
	cur, err := s.col.Find(ctx,
		bson.M{"watchlist.0": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list watching users: %w", err)
	}
	defer cur.Close(ctx)

	out := []User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}
