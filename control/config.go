// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration with YAML loading and validation.

package control

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-mq/api"
)

// Defaults applied by DefaultConfig.
const (
	DefaultRecvTimeout    = 5 * time.Second
	DefaultReactorTimeout = 10 * time.Second
	DefaultTransport      = "inproc"
	DefaultNamespace      = "hioload_mq"
)

// Timeout is a wait bound that also accepts "infinite", "blocking" or -1.
type Timeout time.Duration

// Duration returns the bound, api.Infinite for unbounded waits.
func (t Timeout) Duration() time.Duration { return time.Duration(t) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timeout) UnmarshalYAML(node *yaml.Node) error {
	d, err := ParseTimeout(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = Timeout(d)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Timeout) MarshalYAML() (any, error) {
	if t < 0 {
		return "infinite", nil
	}
	return time.Duration(t).String(), nil
}

// ParseTimeout parses durations ("250ms"), plain milliseconds ("100") and
// the unbounded forms "infinite", "blocking" and "-1".
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "infinite", "infinity", "blocking", "-1":
		return api.Infinite, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative timeout %q", api.ErrInvalidArgument, s)
		}
		return d, nil
	}
	var ms int64
	if _, err := fmt.Sscanf(s, "%d", &ms); err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: bad timeout %q", api.ErrInvalidArgument, s)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// MetricsConfig toggles prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Listen    string `yaml:"listen"`
}

// Config holds runtime parameters for sockets, reactors and tooling.
type Config struct {
	Transport      string        `yaml:"transport"`
	RecvTimeout    Timeout       `yaml:"recv_timeout"`
	ReactorTimeout Timeout       `yaml:"reactor_timeout"`
	Linger         time.Duration `yaml:"linger"`
	LogLevel       string        `yaml:"log_level"`
	Metrics        MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Transport:      DefaultTransport,
		RecvTimeout:    Timeout(DefaultRecvTimeout),
		ReactorTimeout: Timeout(DefaultReactorTimeout),
		LogLevel:       "info",
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
	}
}

// LoadConfig reads YAML from path over the defaults. An empty path or a
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	switch c.Transport {
	case "inproc", "zmq":
	default:
		return fmt.Errorf("%w: unknown transport %q", api.ErrInvalidArgument, c.Transport)
	}
	if c.ReactorTimeout == 0 {
		return fmt.Errorf("%w: reactor_timeout must not be zero", api.ErrInvalidArgument)
	}
	if c.Linger < 0 {
		return fmt.Errorf("%w: negative linger", api.ErrInvalidArgument)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
