package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/githubclt"
)

type fakeContentClient struct {
	entries []*githubclt.TreeEntry
	blobs   map[string][]byte
}

func (c *fakeContentClient) Tree(context.Context, string, string, string) ([]*githubclt.TreeEntry, error) {
	return c.entries, nil
}

func (c *fakeContentClient) Blob(_ context.Context, _, _, sha string) ([]byte, error) {
	return c.blobs[sha], nil
}

func TestAPIFetcherExcludesVersionControlMetadata(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := fakeContentClient{
		entries: []*githubclt.TreeEntry{
			{Path: "README.md", SHA: "s1", Mode: "100644"},
			{Path: ".git/config", SHA: "s2", Mode: "100644"},
		},
		blobs: map[string][]byte{
			"s1": []byte("readme"),
			"s2": []byte("gitcfg"),
		},
	}

	f := NewAPIFetcher(&clt)

	result, err := f.Fetch(context.Background(), &TemplateSource{URL: "acme/tmpl"})
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "README.md", result.Files[0].Path)
	assert.Equal(t, []byte("readme"), result.Files[0].Content)
}

func TestAPIFetcherSubDirectoryRewritesPaths(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := fakeContentClient{
		entries: []*githubclt.TreeEntry{
			{Path: "golang/Makefile", SHA: "s1", Mode: "100644"},
			{Path: "golang/ci/build.yml", SHA: "s2", Mode: "100644"},
			{Path: "node/package.json", SHA: "s3", Mode: "100644"},
		},
		blobs: map[string][]byte{
			"s1": []byte("make"),
			"s2": []byte("build"),
			"s3": []byte("pkg"),
		},
	}

	f := NewAPIFetcher(&clt)

	result, err := f.Fetch(context.Background(), &TemplateSource{
		URL:          "acme/tmpl",
		SubDirectory: "golang",
	})
	require.NoError(t, err)

	paths := make([]string, 0, len(result.Files))
	for _, file := range result.Files {
		paths = append(paths, file.Path)
	}

	assert.ElementsMatch(t, []string{"Makefile", "ci/build.yml"}, paths)
}

func TestAPIFetcherMissingSubDirectoryFails(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt := fakeContentClient{
		entries: []*githubclt.TreeEntry{
			{Path: "README.md", SHA: "s1", Mode: "100644"},
		},
		blobs: map[string][]byte{"s1": []byte("readme")},
	}

	f := NewAPIFetcher(&clt)

	_, err := f.Fetch(context.Background(), &TemplateSource{
		URL:          "acme/tmpl",
		SubDirectory: "does-not-exist",
	})
	require.ErrorIs(t, err, ErrSubdirectoryNotFound)
}

func TestAPIFetcherInvalidURLFails(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	f := NewAPIFetcher(&fakeContentClient{})

	_, err := f.Fetch(context.Background(), &TemplateSource{URL: "not-a-repo"})
	require.ErrorIs(t, err, ErrInvalidSourceURL)
}

func TestTemplateFilesLookup(t *testing.T) {
	tf := TemplateFiles{
		Files: []*File{
			{Path: "a.txt", Content: []byte("a")},
		},
	}

	require.NotNil(t, tf.Lookup("a.txt"))
	assert.Nil(t, tf.Lookup("b.txt"))
}
