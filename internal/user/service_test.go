package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindOrCreate(ctx context.Context, email string) (User, bool, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Bool(1), args.Error(2)
}

func (m *mockStore) ReplaceWatchlist(ctx context.Context, email string, topics []string) error {
	args := m.Called(ctx, email, topics)
	return args.Error(0)
}

func (m *mockStore) ListWatching(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]User), args.Error(1)
}

type UserServiceSuite struct {
	suite.Suite

	store *mockStore
	svc   *Service
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.store = &mockStore{}
	s.svc = NewService(s.store, nil)
}

func (s *UserServiceSuite) TestLogin_NormalizesEmail() {
	want := User{Email: "jane@example.com", Watchlist: []string{}}
	s.store.On("FindOrCreate", mock.Anything, "jane@example.com").Return(want, true, nil).Once()

	u, created, err := s.svc.Login(context.Background(), "  Jane@Example.COM ")

	s.Require().NoError(err)
	s.True(created)
	s.Equal(want, u)
	s.store.AssertExpectations(s.T())
}

func (s *UserServiceSuite) TestLogin_InvalidEmailNeverTouchesStorage() {
	for _, email := range []string{"", "   ", "not-an-email", "a@", "@b.com"} {
		_, _, err := s.svc.Login(context.Background(), email)
		s.ErrorIs(err, ErrInvalidEmail, email)
	}
	s.store.AssertNotCalled(s.T(), "FindOrCreate", mock.Anything, mock.Anything)
}

func (s *UserServiceSuite) TestLogin_StorageFailureIsLookupError() {
	s.store.On("FindOrCreate", mock.Anything, "jane@example.com").Return(User{}, false, errors.New("no primary")).Once()

	_, _, err := s.svc.Login(context.Background(), "jane@example.com")

	var lerr *LookupError
	s.Require().ErrorAs(err, &lerr)
	s.Equal("jane@example.com", lerr.Email)
}

func (s *UserServiceSuite) TestSetWatchlist_DedupesAndTrims() {
	s.store.On("ReplaceWatchlist", mock.Anything, "jane@example.com", []string{"Adani", "Climate policy"}).Return(nil).Once()

	got, err := s.svc.SetWatchlist(context.Background(), "jane@example.com",
		[]string{" Adani ", "adani", "", "Climate   policy", "ADANI"})

	s.Require().NoError(err)
	s.Equal([]string{"Adani", "Climate policy"}, got)
	s.store.AssertExpectations(s.T())
}

func (s *UserServiceSuite) TestSetWatchlist_EmptyListClears() {
	s.store.On("ReplaceWatchlist", mock.Anything, "jane@example.com", []string{}).Return(nil).Once()

	got, err := s.svc.SetWatchlist(context.Background(), "jane@example.com", nil)

	s.Require().NoError(err)
	s.Empty(got)
}

func (s *UserServiceSuite) TestSetWatchlist_UnknownUser() {
	s.store.On("ReplaceWatchlist", mock.Anything, "ghost@example.com", []string{"x"}).Return(ErrNotFound).Once()

	_, err := s.svc.SetWatchlist(context.Background(), "ghost@example.com", []string{"x"})

	s.ErrorIs(err, ErrNotFound)
}

func (s *UserServiceSuite) TestSetWatchlist_Limits() {
	_, err := s.svc.SetWatchlist(context.Background(), "jane@example.com", []string{strings.Repeat("x", MaxTopicLen+1)})
	s.ErrorIs(err, ErrInvalidWatchlist)

	many := make([]string, MaxTopics+1)
	for i := range many {
		many[i] = fmt.Sprintf("topic %d", i)
	}
	_, err = s.svc.SetWatchlist(context.Background(), "jane@example.com", many)
	s.ErrorIs(err, ErrInvalidWatchlist)

	s.store.AssertNotCalled(s.T(), "ReplaceWatchlist", mock.Anything, mock.Anything, mock.Anything)
}
