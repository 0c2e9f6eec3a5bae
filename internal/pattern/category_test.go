package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryPatterns(t *testing.T) {
	patterns, err := CategoryPatterns("typescript")
	require.NoError(t, err)
	require.NotEmpty(t, patterns)

	matched, err := MatchAny(patterns, "tsconfig.json")
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = MatchAny(patterns, "tsconfig.build.json")
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestUnknownCategoryIsAnError(t *testing.T) {
	_, err := CategoryPatterns("does-not-exist")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategoryNamesAreSorted(t *testing.T) {
	names := CategoryNames()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
}
