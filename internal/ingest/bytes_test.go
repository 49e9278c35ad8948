package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestParseByteValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1024", 1024},
		{" 2048 ", 2048},
		{"1,500", 1500},
		{"2.5 M", 2_500_000},
		{"2.5M", 2_500_000},
		{"64.8 K", 64_800},
		{"3 MB", 3_000_000},
		{"12 KB", 12_000},
		{"", 0},
		{"n/a", 0},
		{"2.5 M 10.3 M", 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseByteValue(tc.in))
		})
	}
}

func TestPrettyBytes(t *testing.T) {
	assert.Equal(t, "3.20 M", PrettyBytes("3200000"))
	assert.Equal(t, "1.5 K", PrettyBytes("1500"))
	assert.Equal(t, "512 B", PrettyBytes("512"))
	assert.Equal(t, "0 B", PrettyBytes("0"))
	assert.Equal(t, "", PrettyBytes("  "))
	// Unparseable values keep their original (truncated) text.
	assert.Equal(t, "garbage", PrettyBytes("garbage"))
}

func TestSafeTruncate(t *testing.T) {
	t.Run("short strings untouched", func(t *testing.T) {
		assert.Equal(t, "hello", SafeTruncate("hello", 10))
	})

	t.Run("cuts at separator past 60 percent", func(t *testing.T) {
		got := SafeTruncate("alpha beta gamma delta epsilon", 20)
		assert.Equal(t, "alpha beta gamma...", got)
	})

	t.Run("hard cut when no separator", func(t *testing.T) {
		got := SafeTruncate("aaaaaaaaaaaaaaaaaaaaaaaaa", 10)
		assert.Equal(t, "aaaaaaaaaa...", got)
	})

	t.Run("multibyte input stays valid UTF-8", func(t *testing.T) {
		got := SafeTruncate(strings.Repeat("α", 25), 10)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("α", 10)+"...", got)
	})
}
