package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

const (
	MaxTopics   = 50
	MaxTopicLen = 100
)

type loginRequest struct {
	Email string `validate:"required,email,max=254"`
}

type Service struct {
	store    Store
	validate *validator.Validate
	logger   *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, validate: validator.New(), logger: logger}
}

// NormalizeEmail trims and lowercases an address and checks its shape.
func (s *Service) NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Struct(loginRequest{Email: email}); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

// Login returns the user for email, creating it on first use. created
// reports whether this call created the record.
func (s *Service) Login(ctx context.Context, email string) (User, bool, error) {
	email, err := s.NormalizeEmail(email)
	if err != nil {
		return User{}, false, err
	}

	u, created, err := s.store.FindOrCreate(ctx, email)
	if err != nil {
		return User{}, false, &LookupError{Email: email, Err: err}
	}
	if created {
		s.logger.Printf("user: created %s", email)
	}
	return u, created, nil
}

// SetWatchlist replaces the user's topics and returns the stored list.
func (s *Service) SetWatchlist(ctx context.Context, email string, topics []string) ([]string, error) {
	email, err := s.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	clean, err := NormalizeTopics(topics)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceWatchlist(ctx, email, clean); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &LookupError{Email: email, Err: err}
	}
	return clean, nil
}

// NormalizeTopics trims topics, drops empties and removes case-insensitive
// duplicates keeping the first spelling.
func NormalizeTopics(topics []string) ([]string, error) {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))

	for _, t := range topics {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTopicLen {
			return nil, fmt.Errorf("%w: topic longer than %d characters", ErrInvalidWatchlist, MaxTopicLen)
		}
		key := fold.String(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	if len(out) > MaxTopics {
		return nil, fmt.Errorf("%w: more than %d topics", ErrInvalidWatchlist, MaxTopics)
	}
	return out, nil
}
