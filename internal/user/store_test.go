package user

import (
	"context"
	"sync"
	"testing"

	"github.com/newsradar/newsradar/internal/db/dbtest"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type StoreSuite struct {
	suite.Suite

	ctx    context.Context
	client *mongo.Client
	db     *mongo.Database
	store  Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.client = dbtest.Connect(s.T())
	s.db = s.client.Database("test_newsradar_users")
	s.store = NewMongoStore(s.db)
}

func (s *StoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.db.Drop(s.ctx)
		_ = s.client.Disconnect(s.ctx)
	}
}

func (s *StoreSuite) SetupTest() {
	_, err := s.db.Collection(CollectionName).DeleteMany(s.ctx, bson.M{})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestFindOrCreate_Idempotent() {
	u, created, err := s.store.FindOrCreate(s.ctx, "jane@example.com")
	s.Require().NoError(err)
	s.True(created)
	s.Equal("jane@example.com", u.Email)
	s.Empty(u.Watchlist)

	s.Require().NoError(s.store.ReplaceWatchlist(s.ctx, "jane@example.com", []string{"Adani"}))

	again, created, err := s.store.FindOrCreate(s.ctx, "jane@example.com")
	s.Require().NoError(err)
	s.False(created)
	s.Equal([]string{"Adani"}, again.Watchlist, "login never resets the watchlist")

	n, err := s.db.Collection(CollectionName).CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *StoreSuite) TestFindOrCreate_ConcurrentFirstLogin() {
	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.store.FindOrCreate(s.ctx, "race@example.com")
			s.NoError(err)
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	createdCount := 0
	for c := range results {
		if c {
			createdCount++
		}
	}
	s.Equal(1, createdCount)

	n, err := s.db.Collection(CollectionName).CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *StoreSuite) TestReplaceWatchlist_RoundTripAndMissing() {
	_, _, err := s.store.FindOrCreate(s.ctx, "jane@example.com")
	s.Require().NoError(err)

	s.Require().NoError(s.store.ReplaceWatchlist(s.ctx, "jane@example.com", []string{"Adani", "Tesla"}))
	u, _, err := s.store.FindOrCreate(s.ctx, "jane@example.com")
	s.Require().NoError(err)
	s.Equal([]string{"Adani", "Tesla"}, u.Watchlist)

	s.ErrorIs(s.store.ReplaceWatchlist(s.ctx, "ghost@example.com", []string{"x"}), ErrNotFound)
}

func (s *StoreSuite) TestListWatching_SkipsEmptyLists() {
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, _, err := s.store.FindOrCreate(s.ctx, email)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.ReplaceWatchlist(s.ctx, "b@example.com", []string{"Adani"}))

	users, err := s.store.ListWatching(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("b@example.com", users[0].Email)
}
