package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// NWWS-OI credentials and endpoint.
	Username string
	Password string
	Server   string
	Port     int

	// Channel is the bulletin group channel; messages from any other
	// channel on the same session are discarded.
	Channel string

	// Exchange and Queue are the broker topology the session attaches to.
	Exchange string
	Queue    string

	// History is the number of retained messages requested on channel join.
	History int

	// IdleTimeout is how long the feed may stay silent before the staleness
	// monitor forces a reconnect; MonitorInterval is the check period.
	IdleTimeout     time.Duration
	MonitorInterval time.Duration

	// QueueSize bounds the pull-consumer queue.
	QueueSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka relay configuration.
	RelayEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. Invalid values fail eagerly; nothing downstream should have
// to re-validate.
func Load() (*Config, error) {
	port, err := parsePort(envOrDefault("NWWS_PORT", "5222"))
	if err != nil {
		return nil, err
	}

	history, err := parseHistory(envOrDefault("NWWS_HISTORY", "10"))
	if err != nil {
		return nil, err
	}

	idleTimeout, err := parsePositiveDuration("NWWS_IDLE_TIMEOUT", "5m")
	if err != nil {
		return nil, err
	}

	monitorInterval, err := parsePositiveDuration("NWWS_MONITOR_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	queueSize, err := parseQueueSize(envOrDefault("NWWS_QUEUE_SIZE", "1000"))
	if err != nil {
		return nil, err
	}

	server := strings.TrimSpace(envOrDefault("NWWS_SERVER", ""))
	if server == "" {
		server = "nwws-oi.weather.gov"
	}

	cfg := &Config{
		Username:        strings.TrimSpace(os.Getenv("NWWS_USERNAME")),
		Password:        strings.TrimSpace(os.Getenv("NWWS_PASSWORD")),
		Server:          server,
		Port:            port,
		Channel:         envOrDefault("NWWS_CHANNEL", "nwws@conference.nwws-oi.weather.gov"),
		Exchange:        envOrDefault("NWWS_EXCHANGE", "nwws"),
		Queue:           envOrDefault("NWWS_QUEUE", "wxwire-bulletins"),
		History:         history,
		IdleTimeout:     idleTimeout,
		MonitorInterval: monitorInterval,
		QueueSize:       queueSize,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RelayEnabled:    os.Getenv("KAFKA_RELAY_ENABLED") == "true",
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  envOrDefault("KAFKA_SINK_TOPIC", "weather-bulletins"),
	}

	if cfg.Channel == "" {
		return nil, errors.New("NWWS_CHANNEL is required")
	}
	if cfg.RelayEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_RELAY_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.RelayEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_RELAY_ENABLED is true but KAFKA_SINK_TOPIC is not set")
	}

	return cfg, nil
}

// BrokerURL assembles the AMQP URL for the configured server, including
// credentials when present.
func (c *Config) BrokerURL() string {
	u := url.URL{
		Scheme: "amqp",
		Host:   fmt.Sprintf("%s:%d", c.Server, c.Port),
		Path:   "/",
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid NWWS_PORT %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

func parseHistory(s string) (int, error) {
	history, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid NWWS_HISTORY %q", s)
	}
	if history < 0 {
		return 0, fmt.Errorf("history must be non-negative, got %d", history)
	}
	return history, nil
}

func parseQueueSize(s string) (int, error) {
	size, err := strconv.Atoi(s)
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("queue size must be a positive integer, got %q", s)
	}
	return size, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
