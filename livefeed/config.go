package livefeed

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config controls how the SDK connects.
type Config struct {
	URL              string        `yaml:"url" validate:"required,url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `yaml:"read_timeout" validate:"gte=0"` // 0 keeps an idle feed open
	WriteTimeout     time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// ReconnectDelay is the wait between a drop and the next dial.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" validate:"gt=0"`
	// MaxReconnectDelay > ReconnectDelay enables doubling backoff up to this cap.
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay" validate:"gte=0"`
	ReconnectJitter   time.Duration `yaml:"reconnect_jitter" validate:"gte=0"`
	// MaxReconnectTries of 0 retries forever.
	MaxReconnectTries int `yaml:"max_reconnect_tries" validate:"gte=0"`

	// QueueWhileOffline buffers Send calls made while the channel is not open
	// and flushes them on the next open.
	QueueWhileOffline bool `yaml:"queue_while_offline"`
	OfflineQueueSize  int  `yaml:"offline_queue_size" validate:"gte=0"`

	// FeedCapacity bounds the number of entries kept by a FeedStore.
	FeedCapacity int `yaml:"feed_capacity" validate:"gt=0"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReconnectDelay:   time.Second,
		OfflineQueueSize: 64,
		FeedCapacity:     1000,
	}
}

// Validate reports configuration errors as ErrorInvalidConfig.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return WrapError(ErrorInvalidConfig, "invalid config", err)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, WrapError(ErrorInvalidConfig, "can't unmarshal config file", err)
	}
	return cfg, nil
}
