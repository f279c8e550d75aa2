package stage

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownMusicMode is returned when a music mode name cannot be parsed.
var ErrUnknownMusicMode = errors.New("unknown music mode")

// MusicMode selects the background track.
type MusicMode int

const (
	MusicLandingShort MusicMode = iota // Short landing loop, starts on unlock
	MusicIntro                         // After "yes"
	MusicBouquet                       // Flowers
	MusicCake                          // Cake and final wish
)

// String returns the string representation of the music mode.
func (m MusicMode) String() string {
	switch m {
	case MusicLandingShort:
		return "landingShort"
	case MusicIntro:
		return "intro"
	case MusicBouquet:
		return "bouquet"
	case MusicCake:
		return "cake"
	default:
		return "unknown"
	}
}

// MusicModes returns every music mode.
func MusicModes() []MusicMode {
	return []MusicMode{MusicLandingShort, MusicIntro, MusicBouquet, MusicCake}
}

// ParseMusicMode parses a music mode name. Both the camelCase form used in
// notifications and a snake_case form are accepted.
func ParseMusicMode(name string) (MusicMode, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	for _, m := range MusicModes() {
		if strings.ToLower(m.String()) == key {
			return m, nil
		}
	}
	return MusicLandingShort, errors.Wrapf(ErrUnknownMusicMode, "%q", name)
}
