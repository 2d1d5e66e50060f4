package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/karimjaber/finsync-service/internal/syncpolicy"
	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Sync      SyncConfig      `yaml:"sync"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	SyncTopic string   `yaml:"sync_topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// WebhookConfig holds payment-provider webhook verification settings.
// The shared secret is taken from the environment, never from the yaml file.
type WebhookConfig struct {
	Secret    string `yaml:"-"`
	Algorithm string `yaml:"algorithm"`
}

// Duration decodes "15m"-style yaml values; yaml.v3 has no native
// time.Duration support.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// SyncConfig gathers every time-based sync knob in one section. Zero values
// fall back to the defaults in internal/syncpolicy.
type SyncConfig struct {
	FreshThreshold     Duration `yaml:"fresh_threshold"`
	BalanceThreshold   Duration `yaml:"balance_threshold"`
	BatchInterval      Duration `yaml:"batch_interval"`
	SkipIfSyncedWithin Duration `yaml:"skip_if_synced_within"`
	BatchRatePerMinute int      `yaml:"batch_rate_per_minute"`
	BatchSize          int      `yaml:"batch_size"`
	InitialWindow      Duration `yaml:"initial_window"`
	IncrementalWindow  Duration `yaml:"incremental_window"`
}

// Thresholds resolves the interactive staleness thresholds, falling back to
// the policy defaults for unset values.
func (s SyncConfig) Thresholds() syncpolicy.Thresholds {
	th := syncpolicy.DefaultThresholds()
	if s.FreshThreshold > 0 {
		th.Fresh = time.Duration(s.FreshThreshold)
	}
	if s.BalanceThreshold > 0 {
		th.BalanceOnly = time.Duration(s.BalanceThreshold)
	}
	return th
}

// BatchPolicy resolves the scheduled-job knobs the same way.
func (s SyncConfig) BatchPolicy() syncpolicy.BatchPolicy {
	bp := syncpolicy.DefaultBatchPolicy()
	if s.BatchInterval > 0 {
		bp.Interval = time.Duration(s.BatchInterval)
	}
	if s.SkipIfSyncedWithin > 0 {
		bp.SkipIfSyncedWithin = time.Duration(s.SkipIfSyncedWithin)
	}
	if s.BatchRatePerMinute > 0 {
		bp.RatePerMinute = s.BatchRatePerMinute
	}
	if s.BatchSize > 0 {
		bp.BatchSize = s.BatchSize
	}
	if s.InitialWindow > 0 {
		bp.InitialWindow = time.Duration(s.InitialWindow)
	}
	if s.IncrementalWindow > 0 {
		bp.IncrementalWindow = time.Duration(s.IncrementalWindow)
	}
	return bp
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	cfg.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	if cfg.Webhook.Algorithm == "" {
		cfg.Webhook.Algorithm = "sha256"
	}
	return &cfg, nil
}
