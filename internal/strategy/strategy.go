// Package strategy provides per-file merge strategies and their resolution
// against configured file rules.
package strategy

// Result is the outcome of applying a strategy to one file.
type Result struct {
	// Content is the file content to be written to the target repository.
	Content []byte
	// Conflicts describe content-level conflicts the strategy detected.
	// They do not fail the merge, they are surfaced in the pull request
	// body for a human reviewer.
	Conflicts []string
	Warnings  []string
}

// Strategy decides how the content of a template file is combined with the
// existing content of the target repository.
type Strategy interface {
	Name() string
	// Apply computes the resulting content for path.
	// existing is nil when the file does not exist in the target
	// repository.
	Apply(path string, existing, incoming []byte) (*Result, error)
}

// Config references a strategy by name in the configuration.
type Config struct {
	Type string
}
