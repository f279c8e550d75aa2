// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/wishcard/internal/domain/stage"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Admin   AdminConfig   `yaml:"admin"`
	Timings TimingsConfig `yaml:"timings"`
	Cake    CakeConfig    `yaml:"cake"`
	Media   MediaConfig   `yaml:"media"`
	Player  PlayerConfig  `yaml:"player"`
	Spotify SpotifyConfig `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr      string      `yaml:"addr" default:":8080"`
	PublicURL string      `yaml:"public_url" validate:"omitempty,url"` // Card URL shared as a QR code
	Hooks     HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// TimingsConfig holds how long each transition stage stays on screen.
type TimingsConfig struct {
	BootMs       int `yaml:"boot_ms" default:"5000" validate:"gte=0,lte=60000"`
	T1Ms         int `yaml:"t1_ms" default:"5000" validate:"gte=0,lte=60000"`
	T2Ms         int `yaml:"t2_ms" default:"5000" validate:"gte=0,lte=60000"`
	T3Ms         int `yaml:"t3_ms" default:"5000" validate:"gte=0,lte=60000"`
	FinalDelayMs int `yaml:"final_delay_ms" default:"900" validate:"gte=0,lte=10000"`
}

// CakeConfig represents the cake stage configuration.
type CakeConfig struct {
	Candles int `yaml:"candles" default:"5" validate:"gte=1,lte=32"`
}

// MediaConfig maps music modes to sources.
type MediaConfig struct {
	Tracks  map[string]SourceConfig `yaml:"tracks" validate:"dive"`
	Bouquet SourceConfig            `yaml:"bouquet"`
}

// SourceConfig represents a single media source.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=file embed spotify"`
	Settings map[string]any `yaml:"settings"`
}

// PlayerConfig represents local playback configuration.
type PlayerConfig struct {
	// Command is the argv used to play a file; "{locator}" is replaced by the
	// track locator. Empty disables local playback.
	Command []string `yaml:"command"`
	// WorkDir resolves relative locators (e.g. "/audio/landing.mp3" served
	// from a public directory).
	WorkDir string `yaml:"work_dir"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify media source is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Default source settings used when a mode is not configured.
var defaultTracks = map[string]string{
	"landingShort": "/audio/landing.mp3",
	"intro":        "/audio/intro.mp3",
	"bouquet":      "/audio/bouquet.mp3",
	"cake":         "/audio/cake.mp3",
}

const defaultBouquetVideo = "/bouquet/bloom.mp4"

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.normalizeMediaModes(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	cfg.applyMediaDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
}

// normalizeMediaModes rewrites media.tracks keys to their canonical music
// mode names, so "landing_short" and "landingShort" name the same track.
func (c *Config) normalizeMediaModes() error {
	if len(c.Media.Tracks) == 0 {
		return nil
	}
	tracks := make(map[string]SourceConfig, len(c.Media.Tracks))
	for name, src := range c.Media.Tracks {
		mode, err := stage.ParseMusicMode(name)
		if err != nil {
			return errors.Wrapf(err, "unknown music mode in media.tracks: %s", name)
		}
		key := mode.String()
		if _, dup := tracks[key]; dup {
			return errors.Newf("music mode configured twice in media.tracks: %s", key)
		}
		tracks[key] = src
	}
	c.Media.Tracks = tracks
	return nil
}

// applyMediaDefaults fills in local files for unconfigured modes.
func (c *Config) applyMediaDefaults() {
	if c.Media.Tracks == nil {
		c.Media.Tracks = make(map[string]SourceConfig)
	}
	for mode, path := range defaultTracks {
		if _, ok := c.Media.Tracks[mode]; !ok {
			c.Media.Tracks[mode] = SourceConfig{
				Type:     "file",
				Settings: map[string]any{"path": path},
			}
		}
	}
	if c.Media.Bouquet.Type == "" {
		c.Media.Bouquet = SourceConfig{
			Type:     "file",
			Settings: map[string]any{"path": defaultBouquetVideo},
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for mode := range c.Media.Tracks {
		if _, err := stage.ParseMusicMode(mode); err != nil {
			return errors.Wrapf(err, "unknown music mode in media.tracks: %s", mode)
		}
	}

	if c.UsesSpotify() {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify credentials are required when a spotify media source is configured")
		}
	}

	return nil
}

// UsesSpotify reports whether any media source resolves through Spotify.
func (c *Config) UsesSpotify() bool {
	if c.Media.Bouquet.Type == "spotify" {
		return true
	}
	for _, src := range c.Media.Tracks {
		if src.Type == "spotify" {
			return true
		}
	}
	return false
}

// StageDelay converts a millisecond setting into a duration.
func StageDelay(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
