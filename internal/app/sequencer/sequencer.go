package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/wishcard/internal/app/player"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/domain/track"
)

// ErrClosed is returned by operations on a closed sequencer.
var ErrClosed = errors.New("sequencer closed")

// Catalog maps music modes and stages to media assets.
type Catalog interface {
	Track(mode stage.MusicMode) (track.Track, bool)
	Video(s stage.Stage) (track.Track, bool)
}

// Sequencer owns the card state, the single pending timer and the media handle.
// All state changes go through Reduce under one lock.
type Sequencer struct {
	mu sync.Mutex

	config  Config
	runID   string
	state   State
	player  *player.Player
	catalog Catalog
	sched   Scheduler

	// Pending timer
	timerCancel   func()
	timerGen      uint64
	timerFrom     stage.Stage
	timerDeadline time.Time

	// Events
	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a sequencer in the unlock stage.
func New(cfg Config, p *player.Player, catalog Catalog, sched Scheduler) *Sequencer {
	if p == nil {
		p = player.New(nil)
	}
	if sched == nil {
		sched = WallClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Sequencer{
		config:  cfg,
		runID:   uuid.New().String(),
		state:   InitialState(cfg),
		player:  p,
		catalog: catalog,
		sched:   sched,
		eventCh: make(chan Event, 32),
		ctx:     ctx,
		cancel:  cancel,
	}
	// Preload the first track; it only starts playing after unlock.
	q.applyLocked(ctx, SetTrack{Mode: q.state.Music})
	return q
}

// Events returns the event channel. It is closed by Close.
func (q *Sequencer) Events() <-chan Event {
	return q.eventCh
}

// Trigger applies a user trigger. The unlock trigger starts playback before
// returning, inside the caller's gesture.
func (q *Sequencer) Trigger(ctx context.Context, t stage.Trigger) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dispatchLocked(ctx, TriggerAction{Trigger: t}); err != nil {
		return q.snapshotLocked(), err
	}
	zlog.Info().Msgf("sequencer: trigger applied: trigger=%s stage=%s music=%s", t, q.state.Stage, q.state.Music)
	return q.snapshotLocked(), nil
}

// BlowCandle puts out one candle on the cake stage.
func (q *Sequencer) BlowCandle(ctx context.Context, index int) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dispatchLocked(ctx, BlowCandleAction{Index: index}); err != nil {
		return q.snapshotLocked(), err
	}
	return q.snapshotLocked(), nil
}

// SetMusicMode selects a music mode. Selecting the loaded track again does not
// restart it.
func (q *Sequencer) SetMusicMode(ctx context.Context, mode stage.MusicMode) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dispatchLocked(ctx, SetMusicAction{Mode: mode}); err != nil {
		return q.snapshotLocked(), err
	}
	return q.snapshotLocked(), nil
}

// ForceStage jumps to s, cancelling any pending timer.
func (q *Sequencer) ForceStage(ctx context.Context, s stage.Stage) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dispatchLocked(ctx, ForceStageAction{Stage: s}); err != nil {
		return q.snapshotLocked(), err
	}
	zlog.Info().Msgf("sequencer: stage forced: stage=%s", s)
	return q.snapshotLocked(), nil
}

// Reset returns to the unlock stage and stops playback.
func (q *Sequencer) Reset(ctx context.Context) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return q.snapshotLocked(), ErrClosed
	}

	q.cancelTimerLocked()
	q.player.Unload()

	prev := q.state
	q.state = InitialState(q.config)
	q.runID = uuid.New().String()
	q.applyLocked(ctx, SetTrack{Mode: q.state.Music})
	zlog.Info().Msgf("sequencer: reset: run_id=%s", q.runID)

	q.sendEventLocked(EventStageChanged, player.ResultNoHandle)
	if prev.Music != q.state.Music {
		q.sendEventLocked(EventMusicChanged, player.ResultNoHandle)
	}
	return q.snapshotLocked(), nil
}

// Snapshot returns the current state.
func (q *Sequencer) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Close cancels the pending timer and closes the event channel.
func (q *Sequencer) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.cancelTimerLocked()
	q.player.Stop()
	q.closed = true
	q.cancel()
	close(q.eventCh)
}

// dispatchLocked runs the reducer and applies its effects.
// Must be called with lock held.
func (q *Sequencer) dispatchLocked(ctx context.Context, a Action) error {
	if q.closed {
		return ErrClosed
	}

	prev := q.state
	next, effects, err := Reduce(q.state, a, q.config)
	if err != nil {
		return err
	}
	q.state = next

	var playResult *player.Result
	for _, eff := range effects {
		if r, ok := q.applyLocked(ctx, eff); ok {
			playResult = &r
		}
	}

	if prev.Stage != next.Stage {
		zlog.Debug().Msgf("sequencer: stage changed: from=%s to=%s", prev.Stage, next.Stage)
		q.sendEventLocked(EventStageChanged, player.ResultNoHandle)
	}
	if prev.Music != next.Music {
		q.sendEventLocked(EventMusicChanged, player.ResultNoHandle)
	}
	if prev.Stage == next.Stage && prev.Candles.Lit() != next.Candles.Lit() {
		q.sendEventLocked(EventCandleBlown, player.ResultNoHandle)
	}
	if playResult != nil {
		switch *playResult {
		case player.ResultStarted:
			q.sendEventLocked(EventPlaybackStarted, *playResult)
		case player.ResultBlocked:
			q.sendEventLocked(EventPlaybackBlocked, *playResult)
		}
	}
	return nil
}

// applyLocked runs one effect. It returns the playback result for Play.
// Must be called with lock held.
func (q *Sequencer) applyLocked(ctx context.Context, eff Effect) (player.Result, bool) {
	switch e := eff.(type) {
	case CancelTimer:
		q.cancelTimerLocked()

	case ScheduleAdvance:
		q.scheduleLocked(e.From, e.After)

	case SetTrack:
		if q.catalog == nil {
			return 0, false
		}
		t, ok := q.catalog.Track(e.Mode)
		if !ok {
			zlog.Warn().Msgf("sequencer: no track for music mode: mode=%s", e.Mode)
			return 0, false
		}
		q.player.SetTrack(t)

	case Play:
		res := q.player.Play(ctx)
		zlog.Debug().Msgf("sequencer: playback attempt: result=%s", res)
		return res, true
	}
	return 0, false
}

// scheduleLocked replaces the pending timer with a new one for from.
// Must be called with lock held.
func (q *Sequencer) scheduleLocked(from stage.Stage, after time.Duration) {
	q.cancelTimerLocked()

	gen := q.timerGen
	q.timerFrom = from
	q.timerDeadline = q.sched.Now().Add(after)
	q.timerCancel = q.sched.Schedule(after, func() {
		q.onTimer(gen, from)
	})
	zlog.Debug().Msgf("sequencer: advance scheduled: from=%s after=%v", from, after)
}

// cancelTimerLocked cancels the pending timer and invalidates its token.
// Must be called with lock held.
func (q *Sequencer) cancelTimerLocked() {
	if q.timerCancel != nil {
		q.timerCancel()
		q.timerCancel = nil
	}
	q.timerGen++
	q.timerDeadline = time.Time{}
}

// onTimer is called when a scheduled advance fires.
func (q *Sequencer) onTimer(gen uint64, from stage.Stage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || gen != q.timerGen {
		zlog.Debug().Msgf("sequencer: dropped stale timer: from=%s", from)
		return
	}
	q.timerCancel = nil
	q.timerDeadline = time.Time{}

	if err := q.dispatchLocked(q.ctx, AdvanceAction{From: from}); err != nil {
		zlog.Debug().Msgf("sequencer: advance ignored: %v", err)
		return
	}
	zlog.Info().Msgf("sequencer: auto-advanced: from=%s to=%s", from, q.state.Stage)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (q *Sequencer) sendEventLocked(t EventType, res player.Result) {
	if q.closed {
		return
	}
	e := Event{Type: t, Snapshot: q.snapshotLocked(), Result: res}
	select {
	case q.eventCh <- e:
	case <-q.ctx.Done():
	default:
		zlog.Warn().Msgf("sequencer: event dropped: type=%s", t)
	}
}

func (q *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:          q.runID,
		Stage:          q.state.Stage,
		Music:          q.state.Music,
		AudioUnlocked:  q.state.AudioUnlocked,
		Candles:        q.state.Candles.Flags(),
		Playing:        q.player.Playing(),
		PendingAdvance: q.timerDeadline,
	}
	if t, ok := q.player.Loaded(); ok {
		snap.Track = t
	}
	if q.catalog != nil {
		if v, ok := q.catalog.Video(q.state.Stage); ok {
			snap.Video = v
		}
	}
	return snap
}
