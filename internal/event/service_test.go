package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/newsradar/newsradar/internal/monitor"

	"github.com/eapache/go-resiliency/retrier"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAMQPChannel struct {
	mock.Mock
}

func (m *MockAMQPChannel) PublishWithContext(
	ctx context.Context,
	exchange, key string,
	mandatory, immediate bool,
	msg amqp.Publishing,
) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *MockAMQPChannel) Close() error { return nil }

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBriefing(ctx context.Context, a *monitor.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestPublisher(mockCh *MockAMQPChannel) *RabbitPublisher {
	return &RabbitPublisher{
		ch:     mockCh,
		cfg:    RabbitConfig{Exchange: "newsradar.alerts", RoutingKey: BriefingCreated},
		logger: log.New(io.Discard, "", 0),
		now:    func() time.Time { return fixedNow },
	}
}

func testAlert() *monitor.Alert {
	return &monitor.Alert{
		ID:            "abc123",
		Email:         "ann@example.com",
		Topic:         "Adani",
		CycleID:       "20250301T100000Z",
		ArticleIDs:    []string{"a1", "a2"},
		NegativeShare: 0.8,
		Volume:        5,
		Headlines:     []monitor.Headline{{Title: "Adani shares slide", URL: "https://example.com/1"}},
		TopSummary:    "Shares fell sharply.",
		GeneratedAt:   fixedNow,
	}
}

func TestPublishBriefing_PublishesCorrectly(t *testing.T) {
	mockCh := &MockAMQPChannel{}
	pub := newTestPublisher(mockCh)

	mockCh.
		On("PublishWithContext",
			mock.Anything,
			"newsradar.alerts",
			BriefingCreated,
			false,
			false,
			mock.AnythingOfType("amqp091.Publishing"),
		).
		Return(nil).
		Once()

	err := pub.PublishBriefing(context.Background(), testAlert())
	require.NoError(t, err)

	mockCh.AssertExpectations(t)
}

func TestPublishBriefing_JSONContainsAlert(t *testing.T) {
	mockCh := &MockAMQPChannel{}
	pub := newTestPublisher(mockCh)

	var captured amqp.Publishing
	mockCh.
		On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			captured = args.Get(5).(amqp.Publishing)
		})

	require.NoError(t, pub.PublishBriefing(context.Background(), testAlert()))

	assert.Equal(t, "application/json", captured.ContentType)
	assert.Equal(t, amqp.Persistent, captured.DeliveryMode)
	assert.Equal(t, "abc123", captured.MessageId)

	var msg BriefingMessage
	require.NoError(t, json.Unmarshal(captured.Body, &msg))
	assert.Equal(t, BriefingCreated, msg.Event)
	assert.True(t, fixedNow.Equal(msg.Timestamp))
	assert.Equal(t, "Adani", msg.Alert.Topic)
	assert.Equal(t, []string{"a1", "a2"}, msg.Alert.ArticleIDs)
	assert.Contains(t, string(captured.Body), `"top_summary":"Shares fell sharply."`)
}

func TestPublishBriefing_ErrorBubbles(t *testing.T) {
	mockCh := &MockAMQPChannel{}
	pub := newTestPublisher(mockCh)

	publishErr := errors.New("boom")
	mockCh.
		On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(publishErr)

	err := pub.PublishBriefing(context.Background(), testAlert())
	require.Error(t, err)
	require.Equal(t, publishErr, err)
}

func TestPublishBriefing_ContextCancel(t *testing.T) {
	mockCh := &MockAMQPChannel{}
	pub := newTestPublisher(mockCh)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.PublishBriefing(ctx, testAlert())
	require.Error(t, err)
	require.Equal(t, context.Canceled, err)
	mockCh.AssertNotCalled(t, "PublishWithContext")
}

func newTestService(pub Publisher) *Service {
	s := NewService(nil, pub, log.New(io.Discard, "", 0))
	s.retry = retrier.New(retrier.ConstantBackoff(2, time.Millisecond), nil)
	return s
}

func TestRelay_PublishesInsertedAlert(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("PublishBriefing", mock.Anything, mock.MatchedBy(func(a *monitor.Alert) bool {
		return a.ID == "abc123" && a.Email == "ann@example.com"
	})).Return(nil).Once()

	newTestService(pub).relay(context.Background(), changeEvent{OperationType: "insert", FullDocument: *testAlert()})

	pub.AssertExpectations(t)
}

func TestRelay_RetriesThenGivesUp(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("PublishBriefing", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	newTestService(pub).relay(context.Background(), changeEvent{OperationType: "insert", FullDocument: *testAlert()})

	pub.AssertNumberOfCalls(t, "PublishBriefing", 3)
}

func TestRelay_SkipsEventsWithoutAlert(t *testing.T) {
	pub := &MockPublisher{}

	s := newTestService(pub)
	s.relay(context.Background(), changeEvent{OperationType: "delete"})
	s.relay(context.Background(), changeEvent{OperationType: "insert"})

	pub.AssertNotCalled(t, "PublishBriefing", mock.Anything, mock.Anything)
}

func TestPublisherClose_WithoutConnection(t *testing.T) {
	mockCh := &MockAMQPChannel{}
	pub := newTestPublisher(mockCh)

	assert.NotPanics(t, pub.Close)
	assert.NotPanics(t, (&RabbitPublisher{}).Close)
}
