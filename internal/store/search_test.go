package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoice", "invoice:*"},
		{"tax retur", "tax & retur:*"},
		{"  spaced   out ", "spaced & out:*"},
		{"", ""},
		{"&|!():*", ""},
		{"year-2023 report", "year & 2023 & report:*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, prefixQuery(tt.in), tt.in)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike(`100%`))
	assert.Equal(t, `a\_b`, escapeLike(`a_b`))
	assert.Equal(t, `c:\\docs`, escapeLike(`c:\docs`))
	assert.Equal(t, `plain`, escapeLike(`plain`))
}

func TestHighlightFragment(t *testing.T) {
	text := "The quarterly invoice for consulting services rendered in March."

	frag, ok := highlightFragment(text, []string{"invoice"}, 10)
	assert.True(t, ok)
	assert.Contains(t, frag, "invoice")
	assert.True(t, strings.HasPrefix(frag, "..."))
	assert.True(t, strings.HasSuffix(frag, "..."))

	// Match at the start of the text gets no leading ellipsis.
	frag, ok = highlightFragment(text, []string{"the"}, 10)
	assert.True(t, ok)
	assert.False(t, strings.HasPrefix(frag, "..."))

	// Case-insensitive matching.
	_, ok = highlightFragment(text, []string{"MARCH"}, 10)
	assert.False(t, ok, "terms are expected lowercased by the caller")
	_, ok = highlightFragment(text, []string{"march"}, 10)
	assert.True(t, ok)

	// No term present.
	_, ok = highlightFragment(text, []string{"missing"}, 10)
	assert.False(t, ok)

	// Empty terms never match.
	_, ok = highlightFragment(text, []string{""}, 10)
	assert.False(t, ok)
}

func TestHighlightFragmentMultibyte(t *testing.T) {
	text := "Bericht über die Prüfung der Unterlagen für das Geschäftsjahr"
	frag, ok := highlightFragment(text, []string{"prüfung"}, 8)
	assert.True(t, ok)
	assert.Contains(t, frag, "Prüfung")
}

func TestHighlightFragmentLowercaseChangesByteLength(t *testing.T) {
	// Ⱥ (U+023A, two bytes) lowercases to ⱥ (U+2C65, three bytes), so the
	// lowercased text is longer in bytes than the original. The match offset
	// must still land on the right runes of the original.
	text := "ȺȺȺȺȺȺȺȺȺȺ invoice"
	frag, ok := highlightFragment(text, []string{"invoice"}, 5)
	assert.True(t, ok)
	assert.Contains(t, frag, "invoice")

	frag, ok = highlightFragment("ȺȺȺ Steuer ȺȺȺ", []string{"steuer"}, 4)
	assert.True(t, ok)
	assert.Contains(t, frag, "Steuer")
}
