package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MaxAlertsPerPage = 100

type Store interface {
	State(ctx context.Context, id string) (CycleState, bool, error)
	SaveState(ctx context.Context, st CycleState) error
	InsertAlert(ctx context.Context, a Alert) (bool, error)
	ListAlerts(ctx context.Context, email string, limit int) ([]Alert, error)
}

type mongoStore struct {
	states *mongo.Collection
	alerts *mongo.Collection
}

func NewMongoStore(db *mongo.Database) (Store, error) {
	s := &mongoStore{
		states: db.Collection(StateCollectionName),
		alerts: db.Collection(AlertCollectionName),
	}
	_, err := s.alerts.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "generatedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create alert index: %w", err)
	}
	return s, nil
}

func (s *mongoStore) State(ctx context.Context, id string) (CycleState, bool, error) {
	var st CycleState
	err := s.states.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return CycleState{}, false, nil
	}
	if err != nil {
		return CycleState{}, false, fmt.Errorf("load cycle state %s: %w", id, err)
	}
	return st, true, nil
}

// SaveState writes st unless a state for the same cycle was already saved,
// so a cycle folds into the baseline at most once.
func (s *mongoStore) SaveState(ctx context.Context, st CycleState) error {
	_, err := s.states.ReplaceOne(ctx,
		bson.M{"_id": st.ID, "lastCycleId": bson.M{"$ne": st.LastCycleID}},
		st,
		options.Replace().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("save cycle state %s: %w", st.ID, err)
	}
	return nil
}

// InsertAlert reports false when the alert for this cycle already exists.
func (s *mongoStore) InsertAlert(ctx context.Context, a Alert) (bool, error) {
	_, err := s.alerts.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return true, nil
}

func (s *mongoStore) ListAlerts(ctx context.Context, email string, limit int) ([]Alert, error) {
	if limit <= 0 || limit > MaxAlertsPerPage {
		limit = MaxAlertsPerPage
	}
	cur, err := s.alerts.Find(ctx,
		bson.M{"email": email},
		options.Find().
			SetSort(bson.D{{Key: "generatedAt", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer cur.Close(ctx)

	out := []Alert{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return out, nil
}
