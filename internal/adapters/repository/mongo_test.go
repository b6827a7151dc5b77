package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Mongo tests need a live server; point STARBOARD_TEST_MONGO_URI at one.
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("STARBOARD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STARBOARD_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := fmt.Sprintf("starboard_test_%d", time.Now().UnixNano())
	store, err := NewMongoStore(ctx, uri, db, WithOperationTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() {
		_ = store.Drop(context.Background())
		_ = store.Close()
	}()

	exerciseStore(t, store)
}
