// Package media resolves configured media sources into the track catalog.
package media

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/wishcard/internal/domain/track"
)

// Resolver looks up remote tracks (Spotify).
type Resolver interface {
	ResolveTrack(ctx context.Context, ref string) (track.Track, error)
}

// Source is a kind of media source.
type Source interface {
	// Name returns the source type (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ValidateConfig decodes and validates the source settings.
	ValidateConfig(settings map[string]any) error
	// Resolve turns the validated settings into a track.
	Resolve(ctx context.Context, remote Resolver) (track.Track, error)
}

// registry holds registered source factories.
var registry = make(map[string]func() Source)

// Register registers a source factory.
func Register(name string, factory func() Source) {
	registry[name] = factory
}

// GetRegistered returns all registered source factories.
func GetRegistered() map[string]func() Source {
	return registry
}

// decodeSettings decodes a settings map into out, applies defaults and validates.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// FileConfig represents the settings of a file source.
type FileConfig struct {
	Path        string `mapstructure:"path" validate:"required"`
	Title       string `mapstructure:"title"`
	BaseDir     string `mapstructure:"base_dir"`
	CheckExists bool   `mapstructure:"check_exists"`
}

// FileSource serves a local file or same-origin asset path.
type FileSource struct {
	config *FileConfig
}

func (s *FileSource) Name() string {
	return "file"
}

func (s *FileSource) Description() string {
	return "Local file or same-origin asset path"
}

func (s *FileSource) ValidateConfig(settings map[string]any) error {
	var config FileConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	s.config = &config
	return nil
}

func (s *FileSource) Resolve(ctx context.Context, remote Resolver) (track.Track, error) {
	if s.config == nil {
		return track.Track{}, errors.New("file source is not configured")
	}

	if s.config.CheckExists {
		p := s.config.Path
		if s.config.BaseDir != "" {
			p = filepath.Join(s.config.BaseDir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return track.Track{}, errors.Wrapf(err, "media file %s", p)
		}
	}

	return track.Track{
		ID:      s.config.Path,
		Kind:    track.KindFile,
		Locator: s.config.Path,
		Title:   s.config.Title,
	}, nil
}

// EmbedConfig represents the settings of an embed source.
type EmbedConfig struct {
	URL   string `mapstructure:"url" validate:"required,url"`
	Title string `mapstructure:"title"`
}

// EmbedSource plays through a remote embed player (iframe).
type EmbedSource struct {
	config *EmbedConfig
}

func (s *EmbedSource) Name() string {
	return "embed"
}

func (s *EmbedSource) Description() string {
	return "Remote embed player URL"
}

func (s *EmbedSource) ValidateConfig(settings map[string]any) error {
	var config EmbedConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	s.config = &config
	return nil
}

func (s *EmbedSource) Resolve(ctx context.Context, remote Resolver) (track.Track, error) {
	if s.config == nil {
		return track.Track{}, errors.New("embed source is not configured")
	}
	return track.Track{
		ID:      s.config.URL,
		Kind:    track.KindEmbed,
		Locator: s.config.URL,
		Title:   s.config.Title,
	}, nil
}

// SpotifyConfig represents the settings of a spotify source.
type SpotifyConfig struct {
	Track string `mapstructure:"track" validate:"required"`
}

// SpotifySource resolves a Spotify track into its embed player.
type SpotifySource struct {
	config *SpotifyConfig
}

func (s *SpotifySource) Name() string {
	return "spotify"
}

func (s *SpotifySource) Description() string {
	return "Spotify track (ID, URI or URL) played through the embed player"
}

func (s *SpotifySource) ValidateConfig(settings map[string]any) error {
	var config SpotifyConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	s.config = &config
	return nil
}

func (s *SpotifySource) Resolve(ctx context.Context, remote Resolver) (track.Track, error) {
	if s.config == nil {
		return track.Track{}, errors.New("spotify source is not configured")
	}
	if remote == nil {
		return track.Track{}, errors.New("spotify client is not available")
	}
	return remote.ResolveTrack(ctx, s.config.Track)
}

func init() {
	Register("file", func() Source { return &FileSource{} })
	Register("embed", func() Source { return &EmbedSource{} })
	Register("spotify", func() Source { return &SpotifySource{} })
}
