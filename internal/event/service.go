package event

import (
	"context"
	"log"
	"time"

	"github.com/newsradar/newsradar/internal/monitor"

	"github.com/eapache/go-resiliency/retrier"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reopenDelay    = 5 * time.Second
	publishRetries = 3
	publishBackoff = 200 * time.Millisecond
)

type Publisher interface {
	PublishBriefing(ctx context.Context, a *monitor.Alert) error
}

type changeEvent struct {
	OperationType string        `bson:"operationType"`
	FullDocument  monitor.Alert `bson:"fullDocument"`
}

// Service relays newly inserted alerts from the alerts collection to the
// message bus. Change streams need a replica set.
type Service struct {
	col       *mongo.Collection
	publisher Publisher
	retry     *retrier.Retrier
	logger    *log.Logger
}

func NewService(col *mongo.Collection, publisher Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		col:       col,
		publisher: publisher,
		retry:     retrier.New(retrier.ExponentialBackoff(publishRetries, publishBackoff), nil),
		logger:    logger,
	}
}

// Run watches until ctx is cancelled. A broken stream is reopened after the
// last relayed event.
func (s *Service) Run(ctx context.Context) {
	var resume bson.Raw
	for {
		resume = s.watch(ctx, resume)
		if ctx.Err() != nil {
			s.logger.Println("events: change stream stopped")
			return
		}
		select {
		case <-ctx.Done():
			s.logger.Println("events: change stream stopped")
			return
		case <-time.After(reopenDelay):
		}
	}
}

func (s *Service) watch(ctx context.Context, resume bson.Raw) bson.Raw {
	opts := options.ChangeStream()
	if resume != nil {
		opts.SetResumeAfter(resume)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": "insert"}}},
	}

	stream, err := s.col.Watch(ctx, pipeline, opts)
	if err != nil {
		s.logger.Printf("events: failed to open change stream: %v", err)
		return resume
	}
	defer stream.Close(context.WithoutCancel(ctx))

	s.logger.Println("events: watching alerts change stream...")

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.logger.Printf("events: failed decoding change event: %v", err)
		} else {
			s.relay(ctx, ev)
		}
		resume = stream.ResumeToken()
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.Printf("events: change stream closed with error: %v", err)
	}
	return resume
}

func (s *Service) relay(ctx context.Context, ev changeEvent) {
	if ev.OperationType != "insert" || ev.FullDocument.ID == "" {
		s.logger.Printf("events: skip %s event without alert", ev.OperationType)
		return
	}

	a := ev.FullDocument
	err := s.retry.RunCtx(ctx, func(ctx context.Context) error {
		return s.publisher.PublishBriefing(ctx, &a)
	})
	if err != nil {
		s.logger.Printf("events: failed publishing alert %s: %v", a.ID, err)
		return
	}

	s.logger.Printf("events: published alert %s (%s/%q) to message bus", a.ID, a.Email, a.Topic)
}
