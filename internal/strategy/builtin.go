package strategy

import (
	"bytes"
	"fmt"
)

const (
	OverwriteName = "overwrite"
	SkipName      = "skip"
	MergeName     = "merge"
)

// overwrite always takes the template content.
type overwrite struct{}

func (overwrite) Name() string { return OverwriteName }

func (overwrite) Apply(_ string, _, incoming []byte) (*Result, error) {
	return &Result{Content: incoming}, nil
}

// skip never touches existing files but still creates absent ones.
// The asymmetry is intentional: skip protects existing customizations, not
// absence.
type skip struct{}

func (skip) Name() string { return SkipName }

func (skip) Apply(_ string, existing, incoming []byte) (*Result, error) {
	if existing != nil {
		return &Result{Content: existing}, nil
	}

	return &Result{Content: incoming}, nil
}

// merge takes the template content and reports a conflict when it replaces
// diverging existing content.
// No line-level reconciliation is done, merge is whole-file replacement with
// conflict reporting.
type merge struct{}

func (merge) Name() string { return MergeName }

func (merge) Apply(path string, existing, incoming []byte) (*Result, error) {
	if existing == nil || bytes.Equal(existing, incoming) {
		return &Result{Content: incoming}, nil
	}

	return &Result{
		Content: incoming,
		Conflicts: []string{
			fmt.Sprintf("%s: existing content differs from template content, template version taken", path),
		},
	}, nil
}
