// Package spotify resolves Spotify tracks into embeddable media.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/wishcard/internal/domain/track"
)

// trackAPI is the subset of the Spotify API the client uses.
type trackAPI interface {
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
}

// Client is a Spotify API client.
type Client struct {
	api        trackAPI
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)

	return newWithAPI(spotify.New(httpClient), cfg.Market), nil
}

func newWithAPI(api trackAPI, market string) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		api:        api,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// ResolveTrack looks a track up by ID, URL, or URI and returns it as an
// embeddable track.
func (c *Client) ResolveTrack(ctx context.Context, ref string) (track.Track, error) {
	id := extractTrackID(ref)
	if id == "" {
		return track.Track{}, errors.New("invalid track reference")
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.api.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return track.Track{}, errors.Wrapf(err, "failed to get track %s", id)
	}

	if result.IsPlayable != nil && !*result.IsPlayable {
		return track.Track{}, errors.Newf("track %s is not playable in market %s", id, c.market)
	}

	return convertTrack(result), nil
}

// convertTrack converts a Spotify FullTrack to a domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return track.Track{
		ID:       "spotify:track:" + string(t.ID),
		Kind:     track.KindSpotify,
		Locator:  EmbedURL(string(t.ID)),
		Title:    t.Name,
		Artists:  artists,
		Duration: time.Duration(t.Duration) * time.Millisecond,
	}
}

// EmbedURL returns the embed player URL for a track.
func EmbedURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/embed/track/%s", trackID)
}

// TrackURL returns the Spotify URL for a track.
func TrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractTrackID extracts the track ID from a Spotify track URL, URI or embed URL.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID, /intl-XX/track/TRACK_ID or /embed/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
