package uploads

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultKeyPrefix is the first key segment when none is configured.
	DefaultKeyPrefix = "uploads"

	tokenLength     = 8
	maxSafeNameLen  = 120
	fallbackName    = "file"
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	base36Rejection = 252 // largest multiple of 36 below 256
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeName reduces an untrusted filename to [A-Za-z0-9._-], at most 120
// characters. An empty name becomes "file".
func SafeName(original string) string {
	safe := unsafeNameChars.ReplaceAllString(original, "_")
	if len(safe) > maxSafeNameLen {
		safe = safe[:maxSafeNameLen]
	}
	if safe == "" {
		return fallbackName
	}
	return safe
}

// ObjectKey builds <prefix>/YYYY/MM/DD/<unix millis>-<token>-<safe name>
// from the UTC date of now.
func ObjectKey(prefix, original string, now time.Time, token string) string {
	now = now.UTC()
	name := fmt.Sprintf("%04d/%02d/%02d/%d-%s-%s",
		now.Year(), int(now.Month()), now.Day(), now.UnixMilli(), token, SafeName(original))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// KeyGenerator produces collision resistant object keys. It holds no
// mutable state and is safe for concurrent use.
type KeyGenerator struct {
	Prefix string
	Now    func() time.Time
	Rand   io.Reader
}

// NewKeyGenerator returns a generator using the wall clock and crypto/rand.
func NewKeyGenerator(prefix string) *KeyGenerator {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &KeyGenerator{Prefix: prefix, Now: time.Now, Rand: rand.Reader}
}

// Generate returns a new key for original.
func (g *KeyGenerator) Generate(original string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	t := now()
	return ObjectKey(g.Prefix, original, t, g.token(t))
}

func (g *KeyGenerator) token(t time.Time) string {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	out := make([]byte, 0, tokenLength)
	var buf [16]byte
	for len(out) < tokenLength {
		n, err := io.ReadFull(src, buf[:])
		if err != nil && n == 0 {
			break
		}
		for _, b := range buf[:n] {
			if b >= base36Rejection {
				continue
			}
			out = append(out, base36Alphabet[int(b)%36])
			if len(out) == tokenLength {
				break
			}
		}
		if err != nil {
			break
		}
	}
	if len(out) < tokenLength {
		// Random source failed; fill the rest from the clock.
		fill := strconv.FormatInt(t.UnixNano(), 36)
		for len(out) < tokenLength && fill != "" {
			out = append(out, fill[len(fill)-1])
			fill = fill[:len(fill)-1]
		}
		for len(out) < tokenLength {
			out = append(out, '0')
		}
	}
	return string(out)
}
