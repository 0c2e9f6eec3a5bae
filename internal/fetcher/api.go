package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/githubclt"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
)

// ContentClient is the subset of the github client the API fetcher needs.
type ContentClient interface {
	Tree(ctx context.Context, owner, repo, ref string) ([]*githubclt.TreeEntry, error)
	Blob(ctx context.Context, owner, repo, sha string) ([]byte, error)
}

// APIFetcher retrieves template trees via the github content API, no local
// state is needed.
type APIFetcher struct {
	clt    ContentClient
	logger *zap.Logger
}

func NewAPIFetcher(clt ContentClient) *APIFetcher {
	return &APIFetcher{
		clt:    clt,
		logger: zap.L().Named("api-fetcher"),
	}
}

func (f *APIFetcher) Fetch(ctx context.Context, source *TemplateSource) (*TemplateFiles, error) {
	owner, repo, _, err := ParseSourceURL(source.URL)
	if err != nil {
		return nil, err
	}

	ref, err := source.EffectiveRef()
	if err != nil {
		return nil, err
	}

	entries, err := f.clt.Tree(ctx, owner, repo, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching tree of %s/%s@%s failed: %w", owner, repo, ref, err)
	}

	files := make([]*File, 0, len(entries))

	for _, entry := range entries {
		if isVersionControlPath(entry.Path) {
			continue
		}

		content, err := f.clt.Blob(ctx, owner, repo, entry.SHA)
		if err != nil {
			return nil, fmt.Errorf("fetching blob %s of %s/%s failed: %w", entry.Path, owner, repo, err)
		}

		files = append(files, &File{
			Path:    entry.Path,
			Content: content,
			Mode:    entry.Mode,
		})
	}

	files, err = applySubDirectory(files, source.SubDirectory)
	if err != nil {
		return nil, err
	}

	f.logger.Debug(
		"template fetched via content api",
		logfields.Event("template_fetched"),
		logfields.Template(source.DisplayName()),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Branch(ref),
		zap.Int("file_count", len(files)),
	)

	return &TemplateFiles{
		Source: source,
		Name:   source.DisplayName(),
		Files:  files,
	}, nil
}
