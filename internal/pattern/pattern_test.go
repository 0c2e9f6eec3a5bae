package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	type testcase struct {
		name    string
		pattern string
		path    string
		matches bool
	}

	testcases := []testcase{
		{
			name:    "starDoesNotCrossSeparator",
			pattern: "*.md",
			path:    "docs/intro.md",
			matches: false,
		},
		{
			name:    "starMatchesWithinSegment",
			pattern: "*.md",
			path:    "README.md",
			matches: true,
		},
		{
			name:    "doubleStarCrossesSeparators",
			pattern: ".github/workflows/**",
			path:    ".github/workflows/release/publish.yml",
			matches: true,
		},
		{
			name:    "doubleStarRequiresPrefix",
			pattern: ".github/workflows/**",
			path:    ".github/dependabot.yml",
			matches: false,
		},
		{
			name:    "leadingDoubleStarMatchesTopLevel",
			pattern: "**/*.yml",
			path:    "config.yml",
			matches: true,
		},
		{
			name:    "leadingDoubleStarMatchesNested",
			pattern: "**/*.yml",
			path:    "a/b/c.yml",
			matches: true,
		},
		{
			name:    "dotIsLiteral",
			pattern: "tsconfig.json",
			path:    "tsconfigxjson",
			matches: false,
		},
		{
			name:    "starInMiddle",
			pattern: "tsconfig.*.json",
			path:    "tsconfig.build.json",
			matches: true,
		},
		{
			name:    "exactMatchOnly",
			pattern: "LICENSE",
			path:    "LICENSE.md",
			matches: false,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Compile(tc.pattern)
			require.NoError(t, err)

			assert.Equal(t, tc.matches, m.Match(tc.path))
		})
	}
}

func TestCompileIsCached(t *testing.T) {
	m1, err := Compile("src/**/*.go")
	require.NoError(t, err)

	m2, err := Compile("src/**/*.go")
	require.NoError(t, err)

	assert.Same(t, m1, m2)

	for _, path := range []string{"src/a.go", "src/a/b.go", "pkg/a.go"} {
		assert.Equal(t, m1.Match(path), m2.Match(path), "path: %s", path)
	}
}

func TestCompileEmptyPatternFails(t *testing.T) {
	_, err := Compile("")
	require.Error(t, err)
}

func TestMatchAny(t *testing.T) {
	matched, err := MatchAny([]string{"*.txt", "*.md"}, "notes.md")
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = MatchAny([]string{"*.txt", "*.md"}, "main.go")
	require.NoError(t, err)
	assert.False(t, matched)
}
