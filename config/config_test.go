package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, int64(2<<20), cfg.Journal.SegmentSize)
	require.Equal(t, 4096, cfg.Book.Capacity)
	require.Equal(t, time.Second, cfg.Crank.Interval)
	require.Equal(t, 250*time.Millisecond, cfg.Broadcaster.Interval)
	require.Equal(t, DriverNone, cfg.Broadcaster.Driver)
	require.Zero(t, cfg.Snapshot.Interval)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auction.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
book:
  capacity: 128
broadcaster:
  driver: sarama
  brokers: ["k1:9092", "k2:9092"]
`), 0o644))
	t.Setenv("AUCTION_CRANK_MATCH_LIMIT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 128, cfg.Book.Capacity)
	require.Equal(t, 7, cfg.Crank.MatchLimit)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broadcaster.Brokers)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"book too large":   func(c *Config) { c.Book.Capacity = 70000 },
		"no events":        func(c *Config) { c.Events.Capacity = 0 },
		"zero crank limit": func(c *Config) { c.Crank.ConsumeLimit = 0 },
		"brokers missing":  func(c *Config) { c.Broadcaster.Driver = DriverKafkaGo },
		"unknown driver":   func(c *Config) { c.Broadcaster.Driver = "nats" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
