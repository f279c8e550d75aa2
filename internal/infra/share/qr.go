// Package share renders the card's public URL as a QR code.
package share

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the PNG edge length in pixels.
	DefaultSize = 256
	maxSize     = 2048
)

// Terminal renders url as a QR code made of half-block characters.
func Terminal(url string) (string, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode QR code")
	}
	return q.ToSmallString(false), nil
}

// PNG renders url as a PNG image of size pixels.
func PNG(url string, size int) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode QR code")
	}
	return png, nil
}

// Handler serves the QR code of url as PNG. The optional "size" query
// parameter sets the edge length.
func Handler(url string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size := DefaultSize
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > maxSize {
				http.Error(w, "invalid size", http.StatusBadRequest)
				return
			}
			size = n
		}

		png, err := PNG(url, size)
		if err != nil {
			zlog.Error().Msgf("share: %v", err)
			http.Error(w, "failed to render QR code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(png)
	})
}
