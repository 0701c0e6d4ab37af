// Package dbtest opens throwaway Mongo databases for integration suites.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/newsradar/newsradar/internal/db"

	"go.mongodb.org/mongo-driver/mongo"
)

const URIEnv = "MONGO_TEST_URI"

// Connect returns a client for MONGO_TEST_URI (default localhost) or skips
// the test when no server answers.
func Connect(t *testing.T) *mongo.Client {
	t.Helper()

	uri := os.Getenv(URIEnv)
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	client, err := db.ConnectMongo(context.Background(), uri, 2*time.Second)
	if err != nil {
		t.Skipf("mongo not reachable at %s: %v", uri, err)
	}
	return client
}
