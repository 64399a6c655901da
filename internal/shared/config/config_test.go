package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsPerService(t *testing.T) {
	t.Setenv("SERVICE_NAME", "ledger-service")

	cfg := Load()
	assert.Equal(t, "8082", cfg.HTTPPort)
	assert.Equal(t, "9098", cfg.MetricsPort)
	assert.Equal(t, int64(100), cfg.StartingPoints)
	assert.Equal(t, 3, cfg.ConflictMaxAttempts)
	assert.Equal(t, "bet_placed", cfg.TopicBetPlaced)
	assert.Equal(t, "ledger_updates", cfg.RedisPubSubChannel)

	t.Setenv("SERVICE_NAME", "settlement-worker")
	cfg = Load()
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "9097", cfg.MetricsPort)
	assert.Equal(t, "match_finished_dlq", cfg.TopicMatchFinishedDLQ)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STARTING_POINTS", "250")
	t.Setenv("SETTLE_CONCURRENCY", "2")
	t.Setenv("MATCH_CACHE_TTL", "5s")
	t.Setenv("CONFLICT_MAX_ATTEMPTS", "many")
	t.Setenv("LEDGER_STORE", "memory")

	cfg := Load()
	assert.Equal(t, int64(250), cfg.StartingPoints)
	assert.Equal(t, 2, cfg.SettleConcurrency)
	assert.Equal(t, 5*time.Second, cfg.MatchCacheTTL)
	assert.Equal(t, 3, cfg.ConflictMaxAttempts, "invalid value falls back to default")
	assert.Equal(t, "memory", cfg.LedgerStore)
}
