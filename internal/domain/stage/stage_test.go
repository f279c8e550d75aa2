package stage

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Successor(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		expected Stage
		ok       bool
	}{
		{name: "boot advances to landing", stage: Boot, expected: Landing, ok: true},
		{name: "t1 advances to reveal", stage: T1, expected: Reveal, ok: true},
		{name: "t2 advances to flowers", stage: T2, expected: Flowers, ok: true},
		{name: "t3 advances to cake", stage: T3, expected: Cake, ok: true},
		{name: "unlock waits for input", stage: Unlock, expected: Unlock, ok: false},
		{name: "landing waits for input", stage: Landing, expected: Landing, ok: false},
		{name: "cake waits for input", stage: Cake, expected: Cake, ok: false},
		{name: "final is terminal", stage: Final, expected: Final, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := tt.stage.Successor()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, tt.ok, tt.stage.IsTransition())
		})
	}
}

func TestStage_SequenceIsMonotonic(t *testing.T) {
	for _, s := range All() {
		if next, ok := s.Successor(); ok {
			assert.Equal(t, s+1, next, "successor of %s must be the next stage", s)
		}
	}
	for _, tr := range Triggers() {
		r, ok := tr.Route()
		require.True(t, ok, "trigger %s has no route", tr)
		assert.Equal(t, r.From+1, r.To, "trigger %s must move one stage forward", tr)
	}
}

func TestParse(t *testing.T) {
	for _, s := range All() {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := Parse("  Flowers ")
	require.NoError(t, err)
	assert.Equal(t, Flowers, got)

	_, err = Parse("intermission")
	assert.True(t, errors.Is(err, ErrUnknownStage))
	assert.Equal(t, "unknown", Stage(42).String())
	assert.False(t, Stage(-1).Valid())
}

func TestParseMusicMode(t *testing.T) {
	tests := []struct {
		input    string
		expected MusicMode
	}{
		{input: "landingShort", expected: MusicLandingShort},
		{input: "landing_short", expected: MusicLandingShort},
		{input: "intro", expected: MusicIntro},
		{input: "BOUQUET", expected: MusicBouquet},
		{input: "cake", expected: MusicCake},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMusicMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseMusicMode("disco")
	assert.True(t, errors.Is(err, ErrUnknownMusicMode))
}

func TestParseTrigger(t *testing.T) {
	for _, tr := range Triggers() {
		got, err := ParseTrigger(tr.String())
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}

	got, err := ParseTrigger("click-me")
	require.NoError(t, err)
	assert.Equal(t, TriggerClickMe, got)

	_, err = ParseTrigger("maybe")
	assert.True(t, errors.Is(err, ErrUnknownTrigger))
}

func TestTrigger_Route(t *testing.T) {
	yes, _ := TriggerYes.Route()
	no, _ := TriggerNo.Route()
	assert.Equal(t, yes, no, "both landing buttons advance the same way")

	blown, _ := TriggerAllCandlesBlown.Route()
	assert.False(t, blown.HasMusic, "blowing the candles keeps the cake music")
}
