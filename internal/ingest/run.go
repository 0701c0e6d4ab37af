package ingest

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RunCollectionName = "ingestion_runs"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
)

type RunError struct {
	Kind    string `bson:"kind" json:"-"`
	Feed    string `bson:"feed" json:"feed"`
	Message string `bson:"message" json:"message"`
}

// Run is the report of one ingestion run. It is written when the run starts
// and finalized once when it ends.
type Run struct {
	ID               string     `bson:"_id" json:"run_id"`
	StartedAt        time.Time  `bson:"startedAt" json:"started_at"`
	FinishedAt       time.Time  `bson:"finishedAt,omitempty" json:"finished_at"`
	LimitPerFeed     int        `bson:"limitPerFeed" json:"limit_per_feed"`
	FeedsAttempted   int        `bson:"feedsAttempted" json:"feeds_attempted"`
	ArticlesFetched  int        `bson:"articlesFetched" json:"fetched"`
	ArticlesSkipped  int        `bson:"articlesSkipped" json:"skipped"`
	ArticlesIndexed  int        `bson:"articlesIndexed" json:"indexed"`
	AnalysisFailures int        `bson:"analysisFailures" json:"analysis_failures"`
	Status           RunStatus  `bson:"status" json:"status"`
	Errors           []RunError `bson:"errors" json:"errors"`
}

type RunLog interface {
	Start(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
}

type mongoRunLog struct {
	col *mongo.Collection
}

func NewMongoRunLog(db *mongo.Database) (RunLog, error) {
	col := db.Collection(RunCollectionName)
	_, err := col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "startedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create run index: %w", err)
	}
	return &mongoRunLog{col: col}, nil
}

func (l *mongoRunLog) Start(ctx context.Context, run *Run) error {
	if _, err := l.col.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("record run start %s: %w", run.ID, err)
	}
	return nil
}

// Finish replaces the running record once; a run that is no longer
// running is left untouched.
func (l *mongoRunLog) Finish(ctx context.Context, run *Run) error {
	res, err := l.col.ReplaceOne(ctx,
		bson.M{"_id": run.ID, "status": RunRunning},
		run,
		options.Replace().SetUpsert(false),
	)
	if err != nil {
		return fmt.Errorf("record run finish %s: %w", run.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("record run finish %s: no running record", run.ID)
	}
	return nil
}
