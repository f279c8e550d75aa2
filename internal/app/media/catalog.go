package media

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
	"github.com/osa030/wishcard/internal/infra/config"
)

// Catalog is the static mapping from music modes (and the flowers stage) to
// media assets.
type Catalog struct {
	tracks  map[stage.MusicMode]track.Track
	bouquet track.Track
}

// NewCatalog creates a catalog from resolved tracks.
func NewCatalog(tracks map[stage.MusicMode]track.Track, bouquet track.Track) *Catalog {
	c := &Catalog{
		tracks:  make(map[stage.MusicMode]track.Track, len(tracks)),
		bouquet: bouquet,
	}
	for mode, t := range tracks {
		c.tracks[mode] = t
	}
	return c
}

// BuildCatalog resolves every configured source. remote may be nil when no
// spotify source is configured.
func BuildCatalog(ctx context.Context, cfg config.MediaConfig, remote Resolver) (*Catalog, error) {
	tracks := make(map[stage.MusicMode]track.Track, len(cfg.Tracks))
	for name, src := range cfg.Tracks {
		mode, err := stage.ParseMusicMode(name)
		if err != nil {
			return nil, err
		}
		t, err := resolveSource(ctx, src, remote)
		if err != nil {
			return nil, errors.Wrapf(err, "music mode %s", name)
		}
		tracks[mode] = t
		zlog.Info().Msgf("registered media source: mode=%s type=%s id=%s", mode, src.Type, t.ID)
	}

	for _, mode := range stage.MusicModes() {
		if _, ok := tracks[mode]; !ok {
			return nil, errors.Newf("no media source for music mode %s", mode)
		}
	}

	var bouquet track.Track
	if cfg.Bouquet.Type != "" {
		t, err := resolveSource(ctx, cfg.Bouquet, remote)
		if err != nil {
			return nil, errors.Wrap(err, "bouquet video")
		}
		bouquet = t
		zlog.Info().Msgf("registered bouquet video: type=%s id=%s", cfg.Bouquet.Type, t.ID)
	}

	return NewCatalog(tracks, bouquet), nil
}

func resolveSource(ctx context.Context, src config.SourceConfig, remote Resolver) (track.Track, error) {
	factory, ok := registry[src.Type]
	if !ok {
		return track.Track{}, errors.Newf("unsupported source type: %s", src.Type)
	}
	s := factory()
	if err := s.ValidateConfig(src.Settings); err != nil {
		return track.Track{}, errors.Wrapf(err, "source %s", s.Name())
	}
	return s.Resolve(ctx, remote)
}

// Track returns the track of a music mode.
func (c *Catalog) Track(mode stage.MusicMode) (track.Track, bool) {
	t, ok := c.tracks[mode]
	return t, ok
}

// Video returns the video shown on a stage. Only the flowers stage has one.
func (c *Catalog) Video(s stage.Stage) (track.Track, bool) {
	if s != stage.Flowers || c.bouquet.IsZero() {
		return track.Track{}, false
	}
	return c.bouquet, true
}
