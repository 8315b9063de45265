package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Lambda base images ship without a zoneinfo database
	_ "time/tzdata"
)

const (
	SchedulerLambda = "lambda"
	SchedulerSQS    = "sqs"
)

// MinPollDelay bounds how fast a busy task is re-polled
const MinPollDelay = time.Second

type Config struct {
	// Re-invocation target (required for the lambda scheduler)
	FunctionName string

	// Logging
	LogLevel string
	Debug    bool

	// Export
	PollDelay        time.Duration // Wait before rescheduling while an export is still active
	Timezone         string        // Zone used for the date segment of the destination prefix
	PinWindow        bool          // Carry the export window through the whole chain
	CheckAccountBusy bool          // Probe for any RUNNING export when no task id is carried

	// Scheduling
	Scheduler string
	QueueURL  string
}

func Load() (*Config, error) {
	cfg := &Config{
		FunctionName:     os.Getenv("EXPORT_FUNCTION_NAME"),
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
		Debug:            getEnvBool("DEBUG", false),
		PollDelay:        getEnvDuration("EXPORT_POLL_DELAY_MS", 10*time.Second),
		Timezone:         getEnvString("EXPORT_TIMEZONE", "Asia/Tokyo"),
		PinWindow:        getEnvBool("EXPORT_PIN_WINDOW", true),
		CheckAccountBusy: getEnvBool("EXPORT_CHECK_ACCOUNT_BUSY", false),
		Scheduler:        strings.ToLower(getEnvString("EXPORT_SCHEDULER", SchedulerLambda)),
		QueueURL:         os.Getenv("EXPORT_QUEUE_URL"),
	}

	// Lambda sets this for every function; the override allows targeting an alias or ARN
	if cfg.FunctionName == "" {
		cfg.FunctionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if cfg.PollDelay < MinPollDelay {
		cfg.PollDelay = MinPollDelay
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid EXPORT_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Validate reports missing settings the selected scheduler depends on.
func (c *Config) Validate() error {
	switch c.Scheduler {
	case SchedulerLambda:
		if c.FunctionName == "" {
			return fmt.Errorf("AWS_LAMBDA_FUNCTION_NAME or EXPORT_FUNCTION_NAME is required")
		}
	case SchedulerSQS:
		if c.QueueURL == "" {
			return fmt.Errorf("EXPORT_QUEUE_URL is required when EXPORT_SCHEDULER=sqs")
		}
	default:
		return fmt.Errorf("unknown EXPORT_SCHEDULER %q", c.Scheduler)
	}
	return nil
}

// Location returns the zone for the prefix date. Load already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a millisecond count. Negative values fall back to the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
