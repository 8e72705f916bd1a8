// Package config reads the service configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/scheduler"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// DefaultEnvFiles are loaded by Load when present.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Configuration holds every setting of the service.
type Configuration struct {
	// Schedule is a five-field cron expression, a descriptor such as "@hourly",
	// "@every <duration>" or a bare duration.
	Schedule     string        `env:"SCHEDULE" envDefault:"@every 1m"`
	BufferWindow time.Duration `env:"DECISION_BUFFER_WINDOW" envDefault:"5m"`
	BatchSize    int           `env:"DECISION_BATCH_SIZE" envDefault:"100"`

	StagingGraph string `env:"STAGING_GRAPH" envDefault:"http://mu.semte.ch/graphs/besluiten-consumed"`
	QueueGraph   string `env:"QUEUE_GRAPH" envDefault:"http://mu.semte.ch/graphs/mandataris-queue"`
	AreaTemplate string `env:"ORGANIZATION_GRAPH_TEMPLATE" envDefault:"http://mu.semte.ch/graphs/organizations/{uuid}/LoketLB-mandaatGebruiker"`

	DBPath string `env:"DB_PATH" envDefault:"mandaatsync.db"`
	Port   int    `env:"PORT" envDefault:"8080"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	wake cron.Schedule
}

// LoadEnv loads the env files that exist into the process environment.
// Variables already set are kept. Returns the number of files loaded.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files, then the process environment, and validates.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromMap parses configuration from vars instead of the process environment.
func FromMap(vars map[string]string) (*Configuration, error) {
	c := &Configuration{}
	if err := env.ParseWithOptions(c, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and formats and resolves the schedule.
func (c *Configuration) Validate() error {
	var errs []error
	sched, err := scheduler.ParseSchedule(c.Schedule)
	if err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE: %w", err))
	}
	c.wake = sched
	if c.BufferWindow < 0 {
		errs = append(errs, fmt.Errorf("DECISION_BUFFER_WINDOW must not be negative, got %s", c.BufferWindow))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("DECISION_BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.StagingGraph == "" || c.QueueGraph == "" {
		errs = append(errs, errors.New("STAGING_GRAPH and QUEUE_GRAPH are required"))
	}
	if c.StagingGraph != "" && c.StagingGraph == c.QueueGraph {
		errs = append(errs, errors.New("STAGING_GRAPH and QUEUE_GRAPH must differ"))
	}
	if !strings.Contains(c.AreaTemplate, "{uuid}") {
		errs = append(errs, fmt.Errorf("ORGANIZATION_GRAPH_TEMPLATE must contain {uuid}, got %q", c.AreaTemplate))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// WakeSchedule is the scheduler schedule resolved from Schedule.
func (c *Configuration) WakeSchedule() cron.Schedule {
	return c.wake
}

// Addr is the HTTP listen address.
func (c *Configuration) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LogrusLogLevel maps LOG_LEVEL to a logrus level.
func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.Level(c.LogLevel)
}

// Logger builds the root logger writing to out.
func (c *Configuration) Logger(out io.Writer) *logrus.Logger {
	return logging.New(out, c.LogLevel, c.LogFormat == "json")
}

// AreaFor expands the organization graph template.
func (c *Configuration) AreaFor(uuid string) string {
	return vocab.AreaFor(c.AreaTemplate, uuid)
}
