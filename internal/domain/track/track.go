// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Kind represents where a track is played from.
type Kind string

const (
	KindFile    Kind = "file"    // Local file path or same-origin asset
	KindEmbed   Kind = "embed"   // Remote embed player URL (iframe)
	KindSpotify Kind = "spotify" // Spotify track resolved to an embed URL
)

// Track represents a playable media asset.
type Track struct {
	ID       string        // Identifier used for change detection
	Kind     Kind          // Source kind
	Locator  string        // Path or URL handed to the media handle
	Title    string        // Display title (optional)
	Artists  []string      // Artist names (optional)
	Duration time.Duration // Duration if known
	Loop     bool          // Loop playback
}

// IsZero reports whether the track is unset.
func (t Track) IsZero() bool {
	return t.ID == "" && t.Locator == ""
}

// SameAs reports whether two tracks refer to the same asset.
func (t Track) SameAs(other Track) bool {
	return t.ID == other.ID
}

// DisplayName returns a human-readable label for the track.
func (t Track) DisplayName() string {
	if t.Title == "" {
		return t.Locator
	}
	if len(t.Artists) == 0 {
		return t.Title
	}
	return t.Title + " - " + strings.Join(t.Artists, ", ")
}
