package sequencer

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/wishcard/internal/domain/cake"
	"github.com/osa030/wishcard/internal/domain/stage"
	"github.com/osa030/wishcard/internal/infra/config"
)

// Errors
var (
	ErrTriggerNotAllowed = errors.New("trigger not allowed in current stage")
	ErrStaleTimer        = errors.New("timer fired for a stage that is no longer active")
	ErrInvalidStage      = errors.New("invalid stage")
)

// Config holds the delays and sizes the reducer works with.
type Config struct {
	BootDelay  time.Duration
	T1Delay    time.Duration
	T2Delay    time.Duration
	T3Delay    time.Duration
	FinalDelay time.Duration // After the last candle goes out
	Candles    int
}

// DefaultConfig returns the stock delays.
func DefaultConfig() Config {
	return Config{
		BootDelay:  5 * time.Second,
		T1Delay:    5 * time.Second,
		T2Delay:    5 * time.Second,
		T3Delay:    5 * time.Second,
		FinalDelay: 900 * time.Millisecond,
		Candles:    cake.DefaultCount,
	}
}

// ConfigFrom builds the sequencer config from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BootDelay:  config.StageDelay(cfg.Timings.BootMs),
		T1Delay:    config.StageDelay(cfg.Timings.T1Ms),
		T2Delay:    config.StageDelay(cfg.Timings.T2Ms),
		T3Delay:    config.StageDelay(cfg.Timings.T3Ms),
		FinalDelay: config.StageDelay(cfg.Timings.FinalDelayMs),
		Candles:    cfg.Cake.Candles,
	}
}

// Delay returns how long s stays on screen before advancing.
// Interactive stages return 0.
func (c Config) Delay(s stage.Stage) time.Duration {
	switch s {
	case stage.Boot:
		return c.BootDelay
	case stage.T1:
		return c.T1Delay
	case stage.T2:
		return c.T2Delay
	case stage.T3:
		return c.T3Delay
	default:
		return 0
	}
}

// Action is an input to Reduce.
type Action interface{ isAction() }

// TriggerAction is a user trigger.
type TriggerAction struct{ Trigger stage.Trigger }

// AdvanceAction is a timer firing for the stage it was scheduled in.
type AdvanceAction struct{ From stage.Stage }

// BlowCandleAction puts out one candle.
type BlowCandleAction struct{ Index int }

// ForceStageAction jumps straight to a stage.
type ForceStageAction struct{ Stage stage.Stage }

// SetMusicAction selects a music mode.
type SetMusicAction struct{ Mode stage.MusicMode }

func (TriggerAction) isAction()    {}
func (AdvanceAction) isAction()    {}
func (BlowCandleAction) isAction() {}
func (ForceStageAction) isAction() {}
func (SetMusicAction) isAction()   {}

// Effect is a side effect requested by Reduce.
type Effect interface{ isEffect() }

// CancelTimer cancels the pending advance, if any.
type CancelTimer struct{}

// ScheduleAdvance schedules an AdvanceAction for From after the delay.
type ScheduleAdvance struct {
	From  stage.Stage
	After time.Duration
}

// SetTrack points the media handle at the track of Mode.
type SetTrack struct{ Mode stage.MusicMode }

// Play attempts to start playback.
type Play struct{}

func (CancelTimer) isEffect()     {}
func (ScheduleAdvance) isEffect() {}
func (SetTrack) isEffect()        {}
func (Play) isEffect()            {}

// Reduce applies an action to a state. It never mutates s and has no side
// effects; the returned effects describe what the runtime must do.
// On error the original state is returned with no effects.
func Reduce(s State, a Action, cfg Config) (State, []Effect, error) {
	switch a := a.(type) {
	case TriggerAction:
		return reduceTrigger(s, a.Trigger, cfg)

	case AdvanceAction:
		if s.Stage != a.From {
			return s, nil, errors.Wrapf(ErrStaleTimer, "scheduled in %s, now in %s", a.From, s.Stage)
		}
		if a.From == stage.Cake {
			if !s.FinalScheduled || !s.Candles.AllBlown() {
				return s, nil, errors.Wrap(ErrStaleTimer, "candles are still lit")
			}
			return reduceTrigger(s, stage.TriggerAllCandlesBlown, cfg)
		}
		next, ok := a.From.Successor()
		if !ok {
			return s, nil, errors.Wrapf(ErrStaleTimer, "%s does not advance on its own", a.From)
		}
		out, effects := enter(s, next, cfg)
		return out, effects, nil

	case BlowCandleAction:
		if s.Stage != stage.Cake {
			return s, nil, errors.Wrapf(ErrTriggerNotAllowed, "blow candle in %s", s.Stage)
		}
		candles, changed, err := s.Candles.Blow(a.Index)
		if err != nil {
			return s, nil, err
		}
		out := s
		out.Candles = candles
		var effects []Effect
		if changed && candles.AllBlown() && !out.FinalScheduled {
			out.FinalScheduled = true
			effects = append(effects, ScheduleAdvance{From: stage.Cake, After: cfg.FinalDelay})
		}
		return out, effects, nil

	case ForceStageAction:
		if !a.Stage.Valid() {
			return s, nil, errors.Wrapf(ErrInvalidStage, "%d", int(a.Stage))
		}
		out, effects := enter(s, a.Stage, cfg)
		return out, effects, nil

	case SetMusicAction:
		out, effects := selectMusic(s, a.Mode, nil, false)
		return out, effects, nil

	default:
		return s, nil, errors.Newf("unsupported action %T", a)
	}
}

func reduceTrigger(s State, t stage.Trigger, cfg Config) (State, []Effect, error) {
	route, ok := t.Route()
	if !ok {
		return s, nil, errors.Wrapf(stage.ErrUnknownTrigger, "%d", int(t))
	}
	if s.Stage != route.From {
		return s, nil, errors.Wrapf(ErrTriggerNotAllowed, "%s in %s (expects %s)", t, s.Stage, route.From)
	}
	if t == stage.TriggerAllCandlesBlown && !s.Candles.AllBlown() {
		return s, nil, errors.Wrapf(ErrTriggerNotAllowed, "%s with %d candles lit", t, s.Candles.Lit())
	}

	unlock := t == stage.TriggerUnlock
	out := s
	if unlock {
		out.AudioUnlocked = true
	}
	out, effects := enter(out, route.To, cfg)
	if route.HasMusic {
		out, effects = selectMusic(out, route.Music, effects, unlock)
	}
	return out, effects, nil
}

// enter switches to stage to. Any pending timer is cancelled before a new one
// is scheduled.
func enter(s State, to stage.Stage, cfg Config) (State, []Effect) {
	out := s
	out.Stage = to
	effects := []Effect{CancelTimer{}}

	if to == stage.Cake {
		out.Candles = cake.New(cfg.Candles)
		out.FinalScheduled = false
	}
	if to.IsTransition() {
		effects = append(effects, ScheduleAdvance{From: to, After: cfg.Delay(to)})
	}
	return out, effects
}

// selectMusic sets the music mode. The track is always re-applied (the player
// drops same-identifier loads) and playback is attempted once audio is unlocked.
func selectMusic(s State, mode stage.MusicMode, effects []Effect, forcePlay bool) (State, []Effect) {
	out := s
	out.Music = mode
	effects = append(effects, SetTrack{Mode: mode})
	if forcePlay || out.AudioUnlocked {
		effects = append(effects, Play{})
	}
	return out, effects
}
