package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// required: values that differ between environments (DSNs, upstream URLs)
// default: values shared by every environment (timeouts, windows, thresholds)
// -----------------------------------------------------------------------------

// Config is the full process configuration.
type Config struct {
	Server      Server
	Log         LogConfig
	DB          DBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Queue       QueueConfig
	Worker      WorkerConfig
	Eligibility EligibilityConfig
	DWP         DWPConfig
	ECS         ECSConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `envconfig:"ELIGO_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"ELIGO_SHUTDOWN_TIMEOUT" default:"10s"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// DBConfig selects Postgres when URL is set; in-memory stores otherwise.
type DBConfig struct {
	URL          string        `envconfig:"DATABASE_URL"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLife  time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	AutoMigrate  bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// RedisConfig selects the Redis queue backend when URL is set.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig enables the audit outbox relay when Brokers is set.
type KafkaConfig struct {
	Brokers    []string      `envconfig:"KAFKA_BROKERS"`
	AuditTopic string        `envconfig:"KAFKA_AUDIT_TOPIC" default:"eligibility.audit"`
	Partitions int32         `envconfig:"KAFKA_AUDIT_PARTITIONS" default:"3"`
	Interval   time.Duration `envconfig:"KAFKA_RELAY_INTERVAL" default:"1s"`
}

type QueueConfig struct {
	Standard          string        `envconfig:"QUEUE_STANDARD" default:"process-eligibility-standard"`
	Bulk              string        `envconfig:"QUEUE_BULK" default:"process-eligibility-bulk"`
	VisibilityTimeout time.Duration `envconfig:"QUEUE_VISIBILITY_TIMEOUT" default:"5m"`
	BatchSize         int           `envconfig:"QUEUE_BATCH_SIZE" default:"32"`
}

// WorkerConfig drives the in-process scheduled drain. Interval 0 disables it;
// the HTTP trigger still works.
type WorkerConfig struct {
	Interval time.Duration `envconfig:"WORKER_INTERVAL" default:"30s"`
}

type EligibilityConfig struct {
	HashFreshness time.Duration `envconfig:"CHECK_HASH_FRESHNESS" default:"168h"`
	// Monthly take-home pay thresholds in pence for 1, 2 and 3 live awards.
	UCThreshold1 int64 `envconfig:"UC_THRESHOLD_1" default:"61667"`
	UCThreshold2 int64 `envconfig:"UC_THRESHOLD_2" default:"123333"`
	UCThreshold3 int64 `envconfig:"UC_THRESHOLD_3" default:"184999"`
}

// DWP modes.
const (
	DWPModeCitizenAPI = "citizen_api"
	DWPModeECS        = "ecs"
)

type DWPConfig struct {
	Mode             string        `envconfig:"DWP_MODE" default:"citizen_api"`
	BaseURL          string        `envconfig:"DWP_BASE_URL" default:"http://localhost:9090"`
	AccessToken      string        `envconfig:"DWP_ACCESS_TOKEN"`
	Timeout          time.Duration `envconfig:"DWP_TIMEOUT" default:"10s"`
	ClaimWindow      int           `envconfig:"DWP_CLAIM_WINDOW_MONTHS" default:"3"`
	FailureThreshold int           `envconfig:"DWP_BREAKER_FAILURES" default:"5"`
	Cooldown         time.Duration `envconfig:"DWP_BREAKER_COOLDOWN" default:"30s"`
}

type ECSConfig struct {
	URL            string `envconfig:"ECS_URL" default:"http://localhost:9091/ecs"`
	LocalAuthority string `envconfig:"ECS_LOCAL_AUTHORITY" default:"999"`
	Username       string `envconfig:"ECS_USERNAME"`
	Password       string `envconfig:"ECS_PASSWORD"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.DWP.Mode {
	case DWPModeCitizenAPI, DWPModeECS:
	default:
		return fmt.Errorf("unknown DWP_MODE %q", c.DWP.Mode)
	}
	if c.Queue.Standard == "" || c.Queue.Bulk == "" {
		return fmt.Errorf("queue names are required")
	}
	if c.Queue.Standard == c.Queue.Bulk {
		return fmt.Errorf("standard and bulk queues must differ")
	}
	if c.Eligibility.HashFreshness <= 0 {
		return fmt.Errorf("CHECK_HASH_FRESHNESS must be positive")
	}
	return nil
}
