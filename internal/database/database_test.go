package database

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

var mongoURI string

func mustStartMongoContainer() (func(context.Context) error, error) {
	dbContainer, err := mongodb.Run(context.Background(), "mongo:7")
	if err != nil {
		return nil, err
	}

	uri, err := dbContainer.ConnectionString(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}
	mongoURI = uri

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	teardown, err := mustStartMongoContainer()
	if err != nil {
		log.Warn().Err(err).Msg("Could not start mongodb container, integration tests will be skipped")
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Could not teardown mongodb container")
		}
	}
	os.Exit(code)
}

func requireMongo(t *testing.T) {
	t.Helper()
	if mongoURI == "" {
		t.Skip("mongodb container not available")
	}
}

func TestNew(t *testing.T) {
	requireMongo(t)

	srv, err := New(context.Background(), mongoURI, "supplierhub_test")
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close(context.Background())

	if srv.Database().Name() != "supplierhub_test" {
		t.Fatalf("expected database supplierhub_test, got %s", srv.Database().Name())
	}
}

func TestHealth(t *testing.T) {
	requireMongo(t)

	srv, err := New(context.Background(), mongoURI, "supplierhub_test")
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close(context.Background())

	stats := srv.Health()

	if stats["message"] != "It's healthy" {
		t.Fatalf("expected message to be 'It's healthy', got %s", stats["message"])
	}
}

func TestEnsureIndexes_Idempotent(t *testing.T) {
	requireMongo(t)

	srv, err := New(context.Background(), mongoURI, "supplierhub_test")
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer srv.Close(context.Background())

	for i := 0; i < 2; i++ {
		if err := EnsureIndexes(context.Background(), srv.Database()); err != nil {
			t.Fatalf("EnsureIndexes run %d: %v", i, err)
		}
	}
}
