package pattern

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory is returned when a rule references a category name that
// is not in the built-in table.
var ErrUnknownCategory = errors.New("unknown pattern category")

// categories maps a named category to its canonical pattern list.
// The table is fixed, referencing an unknown name is a configuration error.
var categories = map[string][]string{
	"ci-workflows": {
		".github/workflows/**",
	},
	"github-config": {
		".github/*.md",
		".github/*.yml",
		".github/*.yaml",
		".github/ISSUE_TEMPLATE/**",
	},
	"typescript": {
		"tsconfig.json",
		"tsconfig.*.json",
	},
	"docs": {
		"README.md",
		"CONTRIBUTING.md",
		"docs/**",
	},
	"docker": {
		"Dockerfile",
		"Dockerfile.*",
		"docker-compose.yml",
		"docker-compose.*.yml",
		".dockerignore",
	},
	"lint": {
		".eslintrc*",
		".prettierrc*",
		".golangci.yml",
		".golangci.yaml",
	},
	"editor-config": {
		".editorconfig",
		".vscode/**",
	},
	"license": {
		"LICENSE",
		"LICENSE.*",
	},
	"gitignore": {
		".gitignore",
	},
}

// CategoryPatterns returns the pattern list of the named category.
func CategoryPatterns(name string) ([]string, error) {
	patterns, exist := categories[name]
	if !exist {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}

	return patterns, nil
}

// CategoryNames returns the names of all defined categories, sorted.
func CategoryNames() []string {
	result := make([]string, 0, len(categories))

	for name := range categories {
		result = append(result, name)
	}

	sort.Strings(result)

	return result
}
