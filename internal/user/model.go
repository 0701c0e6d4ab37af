package user

import (
	"errors"
	"fmt"
	"time"
)

const CollectionName = "users"

var (
	ErrNotFound         = errors.New("user not found")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidWatchlist = errors.New("invalid watchlist")
)

// User is keyed by normalized email. Watchlist order is the order the user
// supplied, minus duplicates.
type User struct {
	Email     string    `bson:"_id" json:"email"`
	Watchlist []string  `bson:"watchlist" json:"watchlist"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// LookupError wraps a storage failure during login or watchlist updates.
type LookupError struct {
	Email string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("user lookup %s: %v", e.Email, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
