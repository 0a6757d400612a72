package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
)

// Config carries environment-driven settings for the API and worker processes.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	RabbitMQURL       string
	KafkaBrokers      string
	KafkaTopic        string

	StrictHandoverCompletion bool
	HandoverCancelPolicy     application.HandoverCancelPolicy
	WatchPollInterval        time.Duration
	DedupTTL                 time.Duration

	// TriageReviewers may read the pending queue across every listing.
	TriageReviewers []string
}

const (
	defaultKafkaTopic        = "adoption.events"
	defaultWatchPollInterval = 2 * time.Second
	defaultDedupTTL          = 24 * time.Hour
)

// LoadConfig reads environment variables, applies defaults, and rejects malformed values.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		RabbitMQURL:       strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		KafkaBrokers:      strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envDefault("KAFKA_TOPIC", defaultKafkaTopic),
		WatchPollInterval: defaultWatchPollInterval,
		DedupTTL:          defaultDedupTTL,
		TriageReviewers:   splitList(os.Getenv("ADOPTION_TRIAGE_REVIEWERS")),
	}

	strict, err := parseBool("ADOPTION_STRICT_HANDOVER_COMPLETION", true)
	if err != nil {
		return Config{}, err
	}
	cfg.StrictHandoverCompletion = strict

	policy, err := application.ParseHandoverCancelPolicy(os.Getenv("ADOPTION_HANDOVER_CANCEL_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("ADOPTION_HANDOVER_CANCEL_POLICY: %w", err)
	}
	cfg.HandoverCancelPolicy = policy

	if raw := strings.TrimSpace(os.Getenv("WATCH_POLL_INTERVAL_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("WATCH_POLL_INTERVAL_SECONDS must be a positive integer")
		}
		cfg.WatchPollInterval = time.Duration(seconds) * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv("DEDUP_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("DEDUP_TTL_HOURS must be a positive integer")
		}
		cfg.DedupTTL = time.Duration(hours) * time.Hour
	}
	return cfg, nil
}

// ServiceOptions turns the lifecycle settings into coordinator options.
func (c Config) ServiceOptions() []application.Option {
	return []application.Option{
		application.WithStrictHandoverCompletion(c.StrictHandoverCompletion),
		application.WithHandoverCancelPolicy(c.HandoverCancelPolicy),
	}
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "":
		return fallback, nil
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
}
