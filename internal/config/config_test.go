package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAX_PAGE_LIMIT", "")
	t.Setenv("REDIS_URL", "")
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, 100, cfg.MaxPageLimit)
	require.Equal(t, 20, cfg.DefaultPageLimit)
	require.Equal(t, 3, cfg.UpsertMaxRetries)
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("MAX_PAGE_LIMIT", "10")
	t.Setenv("DEFAULT_PAGE_LIMIT", "50")
	t.Setenv("UPSERT_BASE_DELAY", "5ms")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("STATS_TIMEZONE", "Europe/Berlin")
	cfg := Load()

	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 10, cfg.MaxPageLimit)
	require.Equal(t, 10, cfg.DefaultPageLimit, "default is capped by max")
	require.Equal(t, 5*time.Millisecond, cfg.UpsertBaseDelay)
	require.False(t, cfg.RunMigrations)
	require.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{Timezone: "Not/AZone"}
	require.Equal(t, time.UTC, cfg.Location())
}
