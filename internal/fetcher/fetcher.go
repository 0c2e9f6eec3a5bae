// Package fetcher retrieves the file trees of template repositories.
package fetcher

import (
	"context"
	"fmt"
	"strings"
)

// File is one file of a template repository.
type File struct {
	Path    string
	Content []byte
	Mode    string
}

// TemplateFiles is the fetched file tree of one template source.
type TemplateFiles struct {
	Source *TemplateSource
	Name   string
	Files  []*File
}

// Lookup returns the file at path or nil.
func (t *TemplateFiles) Lookup(path string) *File {
	for _, f := range t.Files {
		if f.Path == path {
			return f
		}
	}

	return nil
}

// Fetcher retrieves the full file tree of a template repository.
// The local-clone and the remote-API implementation are interchangeable
// behind this interface.
type Fetcher interface {
	Fetch(ctx context.Context, source *TemplateSource) (*TemplateFiles, error)
}

func isVersionControlPath(path string) bool {
	return path == ".git" ||
		strings.HasPrefix(path, ".git/") ||
		strings.Contains(path, "/.git/")
}

// applySubDirectory filters files to the configured subdirectory and rewrites
// their paths to be relative to it.
func applySubDirectory(files []*File, subDirectory string) ([]*File, error) {
	if subDirectory == "" {
		return files, nil
	}

	prefix := strings.Trim(subDirectory, "/") + "/"

	var result []*File

	for _, f := range files {
		rel, found := strings.CutPrefix(f.Path, prefix)
		if !found || rel == "" {
			continue
		}

		result = append(result, &File{
			Path:    rel,
			Content: f.Content,
			Mode:    f.Mode,
		})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSubdirectoryNotFound, subDirectory)
	}

	return result, nil
}
