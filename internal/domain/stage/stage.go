// Package stage provides the card stage sequence and its static tables.
package stage

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownStage is returned when a stage name cannot be parsed.
var ErrUnknownStage = errors.New("unknown stage")

// Stage represents one full-screen view in the card sequence.
type Stage int

const (
	Unlock  Stage = iota // Tap to start, gates audio
	Boot                 // First delay after the tap
	Landing              // "Do you know what day it is?"
	T1                   // Transition to reveal
	Reveal               // Birthday reveal
	T2                   // Transition to flowers
	Flowers              // Bouquet video
	T3                   // Transition to cake
	Cake                 // Blow the candles
	Final                // Final wish
)

var names = [...]string{
	Unlock:  "unlock",
	Boot:    "boot",
	Landing: "landing",
	T1:      "t1",
	Reveal:  "reveal",
	T2:      "t2",
	Flowers: "flowers",
	T3:      "t3",
	Cake:    "cake",
	Final:   "final",
}

// All returns every stage in sequence order.
func All() []Stage {
	stages := make([]Stage, 0, len(names))
	for s := Unlock; s <= Final; s++ {
		stages = append(stages, s)
	}
	return stages
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	if s < Unlock || s > Final {
		return "unknown"
	}
	return names[s]
}

// Parse parses a stage name (case-insensitive).
func Parse(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return Stage(i), nil
		}
	}
	return Unlock, errors.Wrapf(ErrUnknownStage, "%q", name)
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= Unlock && s <= Final
}

// IsTransition reports whether the stage advances on its own after a delay.
func (s Stage) IsTransition() bool {
	switch s {
	case Boot, T1, T2, T3:
		return true
	default:
		return false
	}
}

// Successor returns the stage a transition stage advances to.
// The second return value is false for interactive stages.
func (s Stage) Successor() (Stage, bool) {
	switch s {
	case Boot:
		return Landing, true
	case T1:
		return Reveal, true
	case T2:
		return Flowers, true
	case T3:
		return Cake, true
	default:
		return s, false
	}
}
