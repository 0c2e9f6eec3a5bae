package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSourceURL     = errors.New("invalid template source url")
	ErrSubdirectoryNotFound = errors.New("subdirectory not found in template")
)

// TemplateSource identifies one upstream template repository.
// It is immutable once a job payload is built.
type TemplateSource struct {
	URL          string
	Name         string
	Branch       string
	SubDirectory string
}

// DisplayName returns the configured name of the source or, when unset, the
// repository name from its URL.
func (s *TemplateSource) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	if _, repo, _, err := ParseSourceURL(s.URL); err == nil {
		return repo
	}

	return s.URL
}

// EffectiveRef resolves the git ref that is fetched: the configured branch
// wins over a ref embedded in the URL, the fallback is "main".
func (s *TemplateSource) EffectiveRef() (string, error) {
	_, _, urlRef, err := ParseSourceURL(s.URL)
	if err != nil {
		return "", err
	}

	if s.Branch != "" {
		return s.Branch, nil
	}

	if urlRef != "" {
		return urlRef, nil
	}

	return "main", nil
}

// ParseSourceURL extracts owner, repository and an optional embedded ref from
// a template source URL.
// Accepted forms: "owner/repo", "github.com/owner/repo",
// "https://github.com/owner/repo[.git]", "git@github.com:owner/repo[.git]"
// and the browser form ".../tree/<ref>".
func ParseSourceURL(raw string) (owner, repo, ref string, err error) {
	cleaned := strings.TrimSpace(raw)

	for _, prefix := range []string{"https://", "http://"} {
		cleaned = strings.TrimPrefix(cleaned, prefix)
	}

	if rest, found := strings.CutPrefix(cleaned, "git@github.com:"); found {
		cleaned = "github.com/" + rest
	}

	cleaned = strings.TrimSuffix(cleaned, "/")

	segments := strings.Split(cleaned, "/")

	if len(segments) > 0 && strings.Contains(segments[0], ".") {
		if segments[0] != "github.com" && segments[0] != "www.github.com" {
			return "", "", "", fmt.Errorf("%w: unsupported host %q in %q", ErrInvalidSourceURL, segments[0], raw)
		}

		segments = segments[1:]
	}

	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidSourceURL, raw)
	}

	owner = segments[0]
	repo = strings.TrimSuffix(segments[1], ".git")

	if repo == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidSourceURL, raw)
	}

	if len(segments) >= 4 && segments[2] == "tree" {
		ref = strings.Join(segments[3:], "/")
	} else if len(segments) > 2 {
		return "", "", "", fmt.Errorf("%w: unexpected path segments in %q", ErrInvalidSourceURL, raw)
	}

	return owner, repo, ref, nil
}
