package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_IsZero(t *testing.T) {
	assert.True(t, Track{}.IsZero())
	assert.False(t, Track{ID: "/audio/intro.mp3"}.IsZero())
	assert.False(t, Track{Locator: "/audio/intro.mp3"}.IsZero())
}

func TestTrack_SameAs(t *testing.T) {
	a := Track{ID: "/audio/cake.mp3", Locator: "/audio/cake.mp3"}
	b := Track{ID: "/audio/cake.mp3", Locator: "/static/audio/cake.mp3", Title: "Cake"}
	c := Track{ID: "/audio/intro.mp3", Locator: "/audio/cake.mp3"}

	assert.True(t, a.SameAs(b), "tracks are compared by identifier")
	assert.False(t, a.SameAs(c))
}

func TestTrack_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "locator only",
			track:    Track{Locator: "/audio/landing.mp3"},
			expected: "/audio/landing.mp3",
		},
		{
			name:     "title without artists",
			track:    Track{Locator: "/audio/landing.mp3", Title: "Landing"},
			expected: "Landing",
		},
		{
			name:     "title with artists",
			track:    Track{Title: "Tum Se Hi", Artists: []string{"Mohit Chauhan", "Pritam"}},
			expected: "Tum Se Hi - Mohit Chauhan, Pritam",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.DisplayName())
		})
	}
}
