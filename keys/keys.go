// Package keys derives deterministic cache keys from (text, model) pairs.
package keys

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxRunes caps the normalized text length before hashing. Text
// beyond the cap is truncated deterministically; the truncation itself is
// folded into the hash input so a truncated text never collides with its
// own prefix.
const DefaultMaxRunes = 50000

// Deriver maps (text, model) pairs to cache keys via content hashing.
// The zero value is not usable; construct with NewDeriver.
type Deriver struct {
	maxRunes int
}

// NewDeriver returns a Deriver with the given rune cap. A non-positive cap
// falls back to DefaultMaxRunes.
func NewDeriver(maxRunes int) Deriver {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return Deriver{maxRunes: maxRunes}
}

// MaxRunes returns the configured truncation cap.
func (d Deriver) MaxRunes() int {
	return d.maxRunes
}

// Normalize trims surrounding whitespace and truncates to the rune cap.
// Case is preserved; embeddings are case-sensitive. The returned text is
// exactly what a compute client must embed so that the embedded text and
// the derived key always agree.
func (d Deriver) Normalize(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > d.maxRunes {
		return string(runes[:d.maxRunes])
	}
	return text
}

// Derive returns the cache key for (text, model). Identical pairs always
// produce identical keys. The digest covers text, a NUL separator, and the
// model identifier so "ab"+"c" and "a"+"bc" cannot collide across the
// boundary; truncated inputs additionally hash the cut point.
func (d Deriver) Derive(text, model string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	truncated := len(runes) > d.maxRunes
	if truncated {
		trimmed = string(runes[:d.maxRunes])
	}

	h := xxhash.New()
	_, _ = h.WriteString(trimmed)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(model)
	if truncated {
		_, _ = h.Write([]byte{0, '#'})
		_, _ = h.WriteString(strconv.Itoa(d.maxRunes))
	}

	return strconv.FormatUint(h.Sum64(), 16)
}
