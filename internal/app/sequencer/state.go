// Package sequencer drives the card stages, their timers and the media handle.
package sequencer

import (
	"time"

	"github.com/osa030/wishcard/internal/domain/cake"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
)

// State is the logical card state.
type State struct {
	Stage          stage.Stage
	Music          stage.MusicMode
	AudioUnlocked  bool
	Candles        cake.Candles
	FinalScheduled bool // Final transition already scheduled for the current cake
}

// InitialState returns the state the card starts in.
func InitialState(cfg Config) State {
	return State{
		Stage:   stage.Unlock,
		Music:   stage.MusicLandingShort,
		Candles: cake.New(cfg.Candles),
	}
}

// Snapshot is a read-only view of the sequencer for presenters.
type Snapshot struct {
	RunID          string
	Stage          stage.Stage
	Music          stage.MusicMode
	AudioUnlocked  bool
	Candles        []bool
	Track          track.Track // Loaded track (zero if none)
	Playing        bool
	Video          track.Track // Stage video, set on the flowers stage
	PendingAdvance time.Time   // Deadline of the pending timer (zero if none)
}

// Remaining returns the time left until the pending advance fires.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.PendingAdvance.IsZero() {
		return 0
	}
	d := s.PendingAdvance.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
