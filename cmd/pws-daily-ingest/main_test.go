package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/pws-daily-ingest/internal/config"
)

func TestRunReturnsListenFailure(t *testing.T) {
	cfg := &config.AppConfig{
		DatabaseURL:     ":memory:",
		WUAPIKey:        "secret",
		IngestEnabled:   true,
		IngestStationID: "ISANTI123",
		ReferenceTZ:     time.UTC,
		UpstreamTimeout: time.Second,
		Port:            "not-a-port",
		StaticDir:       t.TempDir(),
	}

	done := make(chan error, 1)
	go func() { done <- run(cfg, zap.NewNop().Sugar()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fiber server stopped")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the listener failed")
	}
}

func TestOpenStoreCreatesSchema(t *testing.T) {
	s, err := openStore(context.Background(), ":memory:", zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
