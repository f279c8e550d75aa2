package stage

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownTrigger is returned when a trigger name cannot be parsed.
var ErrUnknownTrigger = errors.New("unknown trigger")

// Trigger is a user-originated event that moves the card forward.
type Trigger int

const (
	TriggerUnlock          Trigger = iota // Tap anywhere on the unlock screen
	TriggerYes                            // "Yes" on landing
	TriggerNo                             // "No" on landing (advances the same way)
	TriggerClickMe                        // "Click me" on reveal
	TriggerCakeTime                       // Cake button on flowers
	TriggerAllCandlesBlown                // Last candle went out
)

// Route describes what a trigger does.
type Route struct {
	From     Stage
	To       Stage
	Music    MusicMode
	HasMusic bool // false when the trigger leaves the music mode unchanged
}

var routes = map[Trigger]Route{
	TriggerUnlock:          {From: Unlock, To: Boot, Music: MusicLandingShort, HasMusic: true},
	TriggerYes:             {From: Landing, To: T1, Music: MusicIntro, HasMusic: true},
	TriggerNo:              {From: Landing, To: T1, Music: MusicIntro, HasMusic: true},
	TriggerClickMe:         {From: Reveal, To: T2, Music: MusicBouquet, HasMusic: true},
	TriggerCakeTime:        {From: Flowers, To: T3, Music: MusicCake, HasMusic: true},
	TriggerAllCandlesBlown: {From: Cake, To: Final},
}

// Route returns the static route of the trigger.
func (t Trigger) Route() (Route, bool) {
	r, ok := routes[t]
	return r, ok
}

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerUnlock:
		return "unlock"
	case TriggerYes:
		return "yes"
	case TriggerNo:
		return "no"
	case TriggerClickMe:
		return "click_me"
	case TriggerCakeTime:
		return "cake_time"
	case TriggerAllCandlesBlown:
		return "all_candles_blown"
	default:
		return "unknown"
	}
}

// Triggers returns every trigger.
func Triggers() []Trigger {
	return []Trigger{TriggerUnlock, TriggerYes, TriggerNo, TriggerClickMe, TriggerCakeTime, TriggerAllCandlesBlown}
}

// ParseTrigger parses a trigger name. Dashes are treated as underscores.
func ParseTrigger(name string) (Trigger, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for _, t := range Triggers() {
		if t.String() == key {
			return t, nil
		}
	}
	return TriggerUnlock, errors.Wrapf(ErrUnknownTrigger, "%q", name)
}
