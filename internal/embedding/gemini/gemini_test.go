package gemini

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// 3-byte runes with the byte limit landing mid-rune.
	text := strings.Repeat("€", 10)
	out := truncate(text, 10)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("€", 3), out)
}
