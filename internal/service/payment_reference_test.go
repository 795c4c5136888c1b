package service

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceGeneratorFormat(t *testing.T) {
	gen := NewReferenceGenerator("JU10")
	ref := gen.Generate()

	pattern := regexp.MustCompile(`^JU10-[0-9A-Z]+-[0-9A-Z]{6}$`)
	assert.True(t, pattern.MatchString(ref), "unexpected reference %q", ref)
}

func TestReferenceGeneratorDeterministicParts(t *testing.T) {
	gen := NewReferenceGenerator("JU10")
	gen.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	gen.random = func(n int) string { return strings.Repeat("A", n) }

	ref := gen.Generate()
	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "JU10", parts[0])
	// 1700000000000 in base36, uppercased.
	assert.Equal(t, "LOYW3V28", parts[1])
	assert.Equal(t, "AAAAAA", parts[2])
}

func TestReferenceGeneratorUniqueness(t *testing.T) {
	gen := NewReferenceGenerator("JU10")
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		ref := gen.Generate()
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %q after %d generations", ref, i)
		seen[ref] = struct{}{}
	}
}
