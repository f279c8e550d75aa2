package sequencer

import "github.com/osa030/wishcard/internal/app/player"

// EventType represents a sequencer event type.
type EventType int

const (
	EventStageChanged    EventType = iota // Stage changed (trigger, timer, force or reset)
	EventMusicChanged                     // Music mode changed
	EventCandleBlown                      // A candle went out
	EventPlaybackStarted                  // Playback attempt succeeded
	EventPlaybackBlocked                  // Playback attempt refused by the output
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStageChanged:
		return "stage_changed"
	case EventMusicChanged:
		return "music_changed"
	case EventCandleBlown:
		return "candle_blown"
	case EventPlaybackStarted:
		return "playback_started"
	case EventPlaybackBlocked:
		return "playback_blocked"
	default:
		return "unknown"
	}
}

// Event represents a sequencer event.
type Event struct {
	Type     EventType
	Snapshot Snapshot      // State right after the change
	Result   player.Result // Set for playback events
}
