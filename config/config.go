// Package config loads the service configuration from an optional YAML
// file and AUCTION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

type JournalConfig struct {
	Dir         string `mapstructure:"dir"`
	SegmentSize int64  `mapstructure:"segment_size"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type BookConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type EventsConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type CrankConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ClearingLimit int           `mapstructure:"clearing_limit"`
	MatchLimit    int           `mapstructure:"match_limit"`
	ConsumeLimit  int           `mapstructure:"consume_limit"`
}

type BroadcasterConfig struct {
	Driver   string        `mapstructure:"driver"`
	Brokers  []string      `mapstructure:"brokers"`
	Topic    string        `mapstructure:"topic"`
	Interval time.Duration `mapstructure:"interval"`
}

type SnapshotConfig struct {
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Store       StoreConfig       `mapstructure:"store"`
	Journal     JournalConfig     `mapstructure:"journal"`
	GRPC        GRPCConfig        `mapstructure:"grpc"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Book        BookConfig        `mapstructure:"book"`
	Events      EventsConfig      `mapstructure:"events"`
	Crank       CrankConfig       `mapstructure:"crank"`
	Broadcaster BroadcasterConfig `mapstructure:"broadcaster"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
}

const (
	DriverNone    = "none"
	DriverSarama  = "sarama"
	DriverKafkaGo = "kafkago"
)

// Load reads path when given, otherwise config.yaml from the working
// directory if there is one. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Book.Capacity <= 0 || c.Book.Capacity > 65535:
		return fmt.Errorf("book.capacity must be in 1..65535, got %d", c.Book.Capacity)
	case c.Events.Capacity <= 0:
		return fmt.Errorf("events.capacity must be positive, got %d", c.Events.Capacity)
	case c.Journal.SegmentSize <= 0:
		return errors.New("journal.segment_size must be positive")
	case c.Crank.ClearingLimit <= 0 || c.Crank.MatchLimit <= 0 || c.Crank.ConsumeLimit <= 0:
		return errors.New("crank limits must be positive")
	}
	switch c.Broadcaster.Driver {
	case DriverNone:
	case DriverSarama, DriverKafkaGo:
		if len(c.Broadcaster.Brokers) == 0 {
			return fmt.Errorf("broadcaster.driver %s needs broadcaster.brokers", c.Broadcaster.Driver)
		}
	default:
		return fmt.Errorf("unknown broadcaster.driver %q", c.Broadcaster.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.dir", "./data/state")
	v.SetDefault("journal.dir", "./data/journal")
	v.SetDefault("journal.segment_size", 2<<20)
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("book.capacity", 4096)
	v.SetDefault("events.capacity", 1024)
	v.SetDefault("crank.interval", "1s")
	v.SetDefault("crank.clearing_limit", 64)
	v.SetDefault("crank.match_limit", 32)
	v.SetDefault("crank.consume_limit", 32)
	v.SetDefault("broadcaster.driver", DriverNone)
	v.SetDefault("broadcaster.brokers", []string{})
	v.SetDefault("broadcaster.topic", "auction-events")
	v.SetDefault("broadcaster.interval", "250ms")
	v.SetDefault("snapshot.dir", "./data/snapshots")
	v.SetDefault("snapshot.interval", "0s")
}
