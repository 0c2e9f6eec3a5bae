package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverwriteAlwaysTakesIncoming(t *testing.T) {
	res, err := overwrite{}.Apply("Makefile", []byte("custom\n"), []byte("template\n"))
	require.NoError(t, err)

	assert.Equal(t, []byte("template\n"), res.Content)
	assert.Empty(t, res.Conflicts)
}

func TestSkipKeepsExistingButCreatesAbsent(t *testing.T) {
	res, err := skip{}.Apply("README.md", []byte("custom\n"), []byte("template\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("custom\n"), res.Content)

	res, err = skip{}.Apply("README.md", nil, []byte("template\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("template\n"), res.Content)
}

func TestMergeReportsConflictOnDivergence(t *testing.T) {
	res, err := merge{}.Apply(".eslintrc", []byte("custom\n"), []byte("template\n"))
	require.NoError(t, err)

	assert.Equal(t, []byte("template\n"), res.Content)
	require.Len(t, res.Conflicts, 1)
	assert.Contains(t, res.Conflicts[0], ".eslintrc")
}

func TestMergeIdenticalContentIsConflictFree(t *testing.T) {
	res, err := merge{}.Apply(".eslintrc", []byte("same\n"), []byte("same\n"))
	require.NoError(t, err)

	assert.Equal(t, []byte("same\n"), res.Content)
	assert.Empty(t, res.Conflicts)
}
