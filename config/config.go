package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP       HTTP
		Log        Log
		PG         PG
		S3         S3
		Redis      Redis
		Kafka      Kafka
		Dispatcher Dispatcher
		Poller     Poller
		Consumer   Consumer
		Swagger    Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT,required"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		Bucket         string        `env:"S3_BUCKET,required"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Redis struct {
		Addr     string        `env:"REDIS_ADDR,required"`
		Password string        `env:"REDIS_PASSWORD" envDefault:""`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"4s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		GroupID string   `env:"KAFKA_GROUP_ID,required"`
	}

	Dispatcher struct {
		PollInterval    time.Duration `env:"DISPATCHER_POLL_INTERVAL" envDefault:"1s"`
		CleanupInterval time.Duration `env:"DISPATCHER_CLEANUP_INTERVAL" envDefault:"24h"`
		Retention       time.Duration `env:"DISPATCHER_RETENTION" envDefault:"168h"`
		BatchSize       int           `env:"DISPATCHER_BATCH_SIZE" envDefault:"100"`
		MaxAttempts     int           `env:"DISPATCHER_MAX_ATTEMPTS" envDefault:"3"`
		RetryDelay      time.Duration `env:"DISPATCHER_RETRY_DELAY" envDefault:"1s"`
		ShutdownTimeout time.Duration `env:"DISPATCHER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Poller struct {
		Interval        time.Duration `env:"POLLER_INTERVAL" envDefault:"10s"`
		BatchSize       int           `env:"POLLER_BATCH_SIZE" envDefault:"100"`
		MaxAttempts     int           `env:"POLLER_MAX_ATTEMPTS" envDefault:"3"`
		RetryDelay      time.Duration `env:"POLLER_RETRY_DELAY" envDefault:"1s"`
		MaxConcurrency  int           `env:"POLLER_MAX_CONCURRENCY" envDefault:"5"`
		ShutdownTimeout time.Duration `env:"POLLER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Consumer struct {
		CommitTimeout   time.Duration `env:"CONSUMER_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout  time.Duration `env:"CONSUMER_PROCESS_TIMEOUT" envDefault:"15s"` // one saga step - db transaction plus outbox append
		Workers         int           `env:"CONSUMER_WORKERS" envDefault:"0"`           // 0 - runtime.NumCPU()
		ShutdownTimeout time.Duration `env:"CONSUMER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
