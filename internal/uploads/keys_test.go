package uploads

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^uploads/\d{4}/\d{2}/\d{2}/\d+-[0-9a-z]{8}-[A-Za-z0-9._-]{1,120}$`)

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"hello.txt", "hello.txt"},
		{"my photo (1).jpg", "my_photo__1_.jpg"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"résumé.pdf", "r_sum_.pdf"},
		{"", "file"},
		{strings.Repeat("a", 200), strings.Repeat("a", 120)},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, SafeName(tt.in), "SafeName(%q)", tt.in)
	}
}

func TestObjectKeyFormat(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 7, 23, 59, 58, 0, time.FixedZone("x", -5*3600))
	got := ObjectKey("/uploads/", "hello world.txt", now, "abcd1234")

	assert.Equal(t, "uploads/2024/03/08/1709873998000-abcd1234-hello_world.txt", got)
	assert.Equal(t, "2024/03/08/1709873998000-abcd1234-file", ObjectKey("", "", now, "abcd1234"))
}

func TestKeyGeneratorSameSecondDiffers(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	g := NewKeyGenerator("uploads")
	g.Now = func() time.Time { return fixed }

	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		key := g.Generate("hello.txt")
		require.Regexp(t, keyPattern, key)
		assert.NotContains(t, key, "//")
		assert.False(t, strings.HasPrefix(key, "/"))
		for _, seg := range strings.Split(key, "/") {
			assert.NotEqual(t, "..", seg)
		}
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestKeyGeneratorTokenFromReader(t *testing.T) {
	t.Parallel()

	g := &KeyGenerator{
		Prefix: "uploads",
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		Rand:   bytes.NewReader([]byte{0, 1, 2, 3, 255, 10, 35, 36, 71}),
	}
	key := g.Generate("a.txt")
	// 255 is rejected; 36 and 71 wrap to 0 and 35.
	assert.Equal(t, "uploads/2023/11/14/1700000000000-0123az0z-a.txt", key)
}

func TestKeyGeneratorRandomFailure(t *testing.T) {
	t.Parallel()

	g := &KeyGenerator{
		Prefix: "uploads",
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		Rand:   iotest.ErrReader(errors.New("no entropy")),
	}
	assert.Regexp(t, keyPattern, g.Generate("a.txt"))
}
