// Package cake provides the candle set of the cake stage.
package cake

import "github.com/cockroachdb/errors"

// DefaultCount is the number of candles on the cake.
const DefaultCount = 5

// ErrCandleOutOfRange is returned when a candle index does not exist.
var ErrCandleOutOfRange = errors.New("candle index out of range")

// Candles is a fixed-size ordered set of lit flags.
type Candles struct {
	lit []bool
}

// New creates n lit candles. n <= 0 falls back to DefaultCount.
func New(n int) Candles {
	if n <= 0 {
		n = DefaultCount
	}
	lit := make([]bool, n)
	for i := range lit {
		lit[i] = true
	}
	return Candles{lit: lit}
}

// Blow puts out the candle at index. It reports whether the flag changed;
// blowing an already blown candle is a no-op.
func (c Candles) Blow(index int) (Candles, bool, error) {
	if index < 0 || index >= len(c.lit) {
		return c, false, errors.Wrapf(ErrCandleOutOfRange, "index %d (candles: %d)", index, len(c.lit))
	}
	if !c.lit[index] {
		return c, false, nil
	}
	next := c.Flags()
	next[index] = false
	return Candles{lit: next}, true, nil
}

// AllBlown reports whether every candle is out.
func (c Candles) AllBlown() bool {
	for _, l := range c.lit {
		if l {
			return false
		}
	}
	return true
}

// Lit returns the number of candles still burning.
func (c Candles) Lit() int {
	n := 0
	for _, l := range c.lit {
		if l {
			n++
		}
	}
	return n
}

// Len returns the number of candles.
func (c Candles) Len() int {
	return len(c.lit)
}

// IsLit reports whether the candle at index is burning.
func (c Candles) IsLit(index int) bool {
	return index >= 0 && index < len(c.lit) && c.lit[index]
}

// Flags returns a copy of the lit flags.
func (c Candles) Flags() []bool {
	out := make([]bool, len(c.lit))
	copy(out, c.lit)
	return out
}
