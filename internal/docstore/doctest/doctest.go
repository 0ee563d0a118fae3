// Package doctest provides throwaway MongoDB databases for integration tests.
package doctest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qlemen7/cineexplorer/internal/docstore"
)

// EnvURI names the variable holding the test deployment's URI.
const EnvURI = "MONGO_TEST_URI"

// Database connects to $MONGO_TEST_URI and returns a fresh database that is
// dropped when the test ends. The test is skipped when the variable is unset.
func Database(t testing.TB) *mongo.Database {
	t.Helper()
	uri := os.Getenv(EnvURI)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB integration test", EnvURI)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := docstore.Connect(ctx, docstore.Config{URI: uri, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	name := "cine_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := client.Database(name)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
