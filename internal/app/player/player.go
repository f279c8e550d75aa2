// Package player provides the single media handle driven by the sequencer.
package player

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/wishcard/internal/domain/track"
)

// ErrBlocked is returned by outputs when the platform refuses to start playback
// outside a user gesture.
var ErrBlocked = errors.New("playback blocked")

// Output is the platform media handle (audio element, presenter, process).
// Methods are called with the sequencer lock held and must return promptly.
type Output interface {
	// Load retargets the handle. Loading stops whatever was playing.
	Load(t track.Track) error
	// Start begins playback of the loaded track.
	Start(ctx context.Context) error
	// Stop halts playback.
	Stop() error
}

// Result is the outcome of a playback attempt.
type Result int

const (
	ResultStarted  Result = iota // Playback is running
	ResultBlocked                // Output refused; next gesture retries
	ResultNoHandle               // No output or nothing loaded
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case ResultStarted:
		return "started"
	case ResultBlocked:
		return "blocked"
	case ResultNoHandle:
		return "no_handle"
	default:
		return "unknown"
	}
}

// Player wraps an Output and keeps track of what is loaded.
type Player struct {
	mu sync.RWMutex

	output  Output
	loaded  track.Track
	playing bool
	last    Result
}

// New creates a player. A nil output turns every operation into a no-op.
func New(output Output) *Player {
	return &Player{
		output: output,
		last:   ResultNoHandle,
	}
}

// SetTrack loads t unless a track with the same identifier is already loaded.
// Looping is always enabled. It reports whether the output was retargeted.
func (p *Player) SetTrack(t track.Track) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.output == nil || t.IsZero() {
		return false
	}

	if !p.loaded.IsZero() && p.loaded.SameAs(t) {
		return false
	}

	t.Loop = true
	if err := p.output.Load(t); err != nil {
		zlog.Warn().Msgf("player: failed to load track: id=%s err=%v", t.ID, err)
		return false
	}

	zlog.Debug().Msgf("player: track loaded: id=%s kind=%s locator=%s", t.ID, t.Kind, t.Locator)
	p.loaded = t
	p.playing = false
	return true
}

// Play attempts to start playback. Failures are swallowed and reported as
// ResultBlocked; the caller retries on the next user gesture.
func (p *Player) Play(ctx context.Context) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.output == nil || p.loaded.IsZero() {
		p.last = ResultNoHandle
		return p.last
	}

	if p.playing {
		p.last = ResultStarted
		return p.last
	}

	if err := p.output.Start(ctx); err != nil {
		zlog.Debug().Msgf("player: playback not started: id=%s err=%v", p.loaded.ID, err)
		p.last = ResultBlocked
		return p.last
	}

	p.playing = true
	p.last = ResultStarted
	return p.last
}

// Stop halts playback and keeps the loaded track.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.output == nil {
		return
	}
	if err := p.output.Stop(); err != nil {
		zlog.Debug().Msgf("player: stop failed: %v", err)
	}
	p.playing = false
}

// Unload stops playback and forgets the loaded track.
func (p *Player) Unload() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = track.Track{}
}

// Loaded returns the loaded track.
func (p *Player) Loaded() (track.Track, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded, !p.loaded.IsZero()
}

// Playing reports whether playback is running.
func (p *Player) Playing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playing
}

// LastResult returns the outcome of the last Play call.
func (p *Player) LastResult() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
