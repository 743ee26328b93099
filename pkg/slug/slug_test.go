package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kundenmagnet/kundenmagnet/pkg/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Summer Campaign", "summer-campaign"},
		{"punctuation collapses", "Best -- Bakery!!", "best-bakery"},
		{"umlauts kept as letters", "Zufriedene Kunden München", "zufriedene-kunden-münchen"},
		{"leading and trailing junk", "  ***Launch 2026*** ", "launch-2026"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, slug.Make(tt.input))
		})
	}

	t.Run("long names are truncated", func(t *testing.T) {
		t.Parallel()

		s := slug.Make(strings.Repeat("word ", 40))
		assert.LessOrEqual(t, len(s), 64)
		assert.False(t, strings.HasSuffix(s, "-"))
	})
}

func TestMakeUnique(t *testing.T) {
	t.Parallel()

	t.Run("appends suffix", func(t *testing.T) {
		t.Parallel()

		s := slug.MakeUnique("Summer Campaign", 6)
		assert.True(t, strings.HasPrefix(s, "summer-campaign-"))
		assert.Len(t, s, len("summer-campaign-")+6)
	})

	t.Run("two calls differ", func(t *testing.T) {
		t.Parallel()

		a := slug.MakeUnique("x", 8)
		b := slug.MakeUnique("x", 8)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty base is just the suffix", func(t *testing.T) {
		t.Parallel()

		s := slug.MakeUnique("", 6)
		assert.Len(t, s, 6)
	})
}
