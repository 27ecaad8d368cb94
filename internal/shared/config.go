package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// PlaybackMode selects the backend strategy for provider-hosted media.
type PlaybackMode string

const (
	ModeEmbedded    PlaybackMode = "embedded"     // Play through the embedded provider
	ModeResolvedURL PlaybackMode = "resolved-url" // Always resolve a direct stream URL
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Playback PlaybackConfig `toml:"playback"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Resolver ResolverConfig `toml:"resolver"`
	Server   ServerConfig   `toml:"server"`
	MPV      MPVConfig      `toml:"mpv"`
}

// PlaybackConfig contains transport and prefetch settings.
type PlaybackConfig struct {
	Mode                  PlaybackMode `toml:"mode"`
	PrefetchThresholdSecs float64      `toml:"prefetch_threshold_secs"` // 0 disables prefetch
	MinRestoreSecs        float64      `toml:"min_restore_secs"`
}

// OverlayConfig contains overlay visibility thresholds in seconds.
type OverlayConfig struct {
	NextUpSecs float64 `toml:"next_up_secs"`
	SingerSecs float64 `toml:"singer_secs"`
}

// ResolverConfig contains stream resolver sidecar settings.
type ResolverConfig struct {
	BaseURL     string  `toml:"base_url"`
	RateLimit   float64 `toml:"rate_limit"` // Requests per second
	TimeoutSecs int     `toml:"timeout_secs"`
}

// ServerConfig contains control API settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MPVConfig contains settings for the mpv-backed media windows.
type MPVConfig struct {
	Binary    string   `toml:"binary"`
	ExtraArgs []string `toml:"extra_args"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Playback.Mode {
	case ModeEmbedded, ModeResolvedURL:
	default:
		return fmt.Errorf("%w: playback.mode must be %q or %q, got %q",
			ErrInvalidConfig, ModeEmbedded, ModeResolvedURL, c.Playback.Mode)
	}
	if c.Playback.PrefetchThresholdSecs < 0 {
		return fmt.Errorf("%w: playback.prefetch_threshold_secs must be >= 0", ErrInvalidConfig)
	}
	if c.Playback.MinRestoreSecs < 0 {
		return fmt.Errorf("%w: playback.min_restore_secs must be >= 0", ErrInvalidConfig)
	}
	if c.Overlay.NextUpSecs < 0 || c.Overlay.SingerSecs < 0 {
		return fmt.Errorf("%w: overlay thresholds must be >= 0", ErrInvalidConfig)
	}
	if c.Resolver.RateLimit <= 0 {
		return fmt.Errorf("%w: resolver.rate_limit must be > 0", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}
