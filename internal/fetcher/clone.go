package fetcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

// CloneFetcher retrieves template trees by shallow-cloning the repository
// with the git command.
// scratchDir is caller-owned: the caller creates it before use and removes it
// on every exit path, the fetcher only creates and removes per-fetch
// subdirectories inside it.
type CloneFetcher struct {
	scratchDir string
	apiToken   string
	logger     *zap.Logger
}

func NewCloneFetcher(scratchDir, apiToken string) *CloneFetcher {
	return &CloneFetcher{
		scratchDir: scratchDir,
		apiToken:   apiToken,
		logger:     zap.L().Named("clone-fetcher"),
	}
}

func (f *CloneFetcher) Fetch(ctx context.Context, source *TemplateSource) (*TemplateFiles, error) {
	owner, repo, _, err := ParseSourceURL(source.URL)
	if err != nil {
		return nil, err
	}

	ref, err := source.EffectiveRef()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(f.scratchDir, uuid.NewString())
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			f.logger.Warn(
				"removing clone directory failed",
				logfields.Event("clone_dir_removal_failed"),
				zap.String("dir", dir),
				zap.Error(err),
			)
		}
	}()

	cmd := exec.CommandContext(
		ctx,
		"git", "clone", "--depth=1", "--single-branch", "--branch", ref,
		f.cloneURL(owner, repo),
		dir,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		// network failures and github outages surface as git errors,
		// treat clone failures as transient
		return nil, weaveerr.NewRetryableAnytimeError(
			fmt.Errorf("cloning %s/%s@%s failed: %w: %s", owner, repo, ref, err, output),
		)
	}

	files, err := readTree(dir)
	if err != nil {
		return nil, err
	}

	files, err = applySubDirectory(files, source.SubDirectory)
	if err != nil {
		return nil, err
	}

	f.logger.Debug(
		"template fetched via clone",
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

func (f *CloneFetcher) cloneURL(owner, repo string) string {
	if f.apiToken == "" {
		return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
	}

	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", f.apiToken, owner, repo)
}

func readTree(dir string) ([]*File, error) {
	var files []*File

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if isVersionControlPath(rel) {
				return filepath.SkipDir
			}

			return nil
		}

		if isVersionControlPath(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		mode := "100644"
		if info.Mode()&0o111 != 0 {
			mode = "100755"
		}

		files = append(files, &File{
			Path:    rel,
			Content: content,
			Mode:    mode,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading cloned tree failed: %w", err)
	}

	return files, nil
}
