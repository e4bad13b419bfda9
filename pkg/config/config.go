package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Ingest struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"ingest"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Headend struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Meters         []string      `yaml:"meters"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"headend"`
	Tariff struct {
		FlatRate       float64 `yaml:"flat_rate"`
		SpikeThreshold float64 `yaml:"spike_threshold"`
		GraceDays      int     `yaml:"grace_days"`
	} `yaml:"tariff"`
	Advisor struct {
		ActiveThreshold  float64 `yaml:"active_threshold"`
		StandbyThreshold float64 `yaml:"standby_threshold"`
		MinRunLength     int     `yaml:"min_run_length"`
		PeakStartHour    int     `yaml:"peak_start_hour"`
		PeakEndHour      int     `yaml:"peak_end_hour"`
		PeakShare        float64 `yaml:"peak_share"`
	} `yaml:"advisor"`
	Notify struct {
		Enabled    bool          `yaml:"enabled"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"notify"`
	Cache struct {
		TTL   struct {
			Latest    time.Duration `yaml:"latest"`
			Analytics time.Duration `yaml:"analytics"`
			Billing   time.Duration `yaml:"billing"`
		} `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.TariffDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("INGEST_API_KEY"); v != "" {
		c.Ingest.APIKey = v
	}
	if v := os.Getenv("HEADEND_API_KEY"); v != "" {
		c.Headend.APIKey = v
	}
	if v := os.Getenv("METERS"); v != "" {
		c.Headend.Meters = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	switch c.Backend.Type {
	case "kafka", "clickhouse", "memory":
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'memory', got '%s'", c.Backend.Type)
	}
	if c.Tariff.FlatRate < 0 {
		return fmt.Errorf("tariff.flat_rate cannot be negative")
	}
	if c.Tariff.SpikeThreshold < 0 {
		return fmt.Errorf("tariff.spike_threshold cannot be negative")
	}
	if c.Headend.Enabled {
		if c.Headend.WebSocketURL == "" {
			return fmt.Errorf("headend.websocket_url is required")
		}
		if len(c.Headend.Meters) == 0 {
			return fmt.Errorf("headend.meters cannot be empty")
		}
	}
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url is required")
	}
	return nil
}

// TariffDefaults fills unset tariff fields with the standard flat plan.
func (c *Config) TariffDefaults() {
	if c.Tariff.FlatRate == 0 {
		c.Tariff.FlatRate = 0.18
	}
	if c.Tariff.SpikeThreshold == 0 {
		c.Tariff.SpikeThreshold = 5.0
	}
	if c.Tariff.GraceDays == 0 {
		c.Tariff.GraceDays = 7
	}
}
