package share

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardURL = "https://card.example.com/"

func TestTerminal(t *testing.T) {
	s, err := Terminal(cardURL)
	require.NoError(t, err)
	assert.Greater(t, strings.Count(s, "\n"), 10)
}

func TestPNG(t *testing.T) {
	data, err := PNG(cardURL, 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestHandler(t *testing.T) {
	h := Handler(cardURL)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSize   int
	}{
		{name: "default size", wantStatus: http.StatusOK, wantSize: DefaultSize},
		{name: "custom size", query: "?size=64", wantStatus: http.StatusOK, wantSize: 64},
		{name: "not a number", query: "?size=big", wantStatus: http.StatusBadRequest},
		{name: "too large", query: "?size=100000", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share.png"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			img, err := png.Decode(rec.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, img.Bounds().Dx())
		})
	}
}
