package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/fetcher"
	"github.com/pradeepmouli/repoweaver/internal/strategy"
)

func tmpl(name string, files map[string]string) *fetcher.TemplateFiles {
	result := fetcher.TemplateFiles{
		Source: &fetcher.TemplateSource{URL: "acme/" + name, Name: name},
		Name:   name,
	}

	for path, content := range files {
		result.Files = append(result.Files, &fetcher.File{
			Path:    path,
			Content: []byte(content),
			Mode:    "100644",
		})
	}

	return &result
}

func lookupFromMap(existing map[string]string) ExistingFileLookup {
	return func(_ context.Context, path string) ([]byte, bool, error) {
		content, found := existing[path]
		if !found {
			return nil, false, nil
		}

		return []byte(content), true, nil
	}
}

func decisionFor(t *testing.T, decisions []*Decision, path string) *Decision {
	t.Helper()

	for _, d := range decisions {
		if d.Path == path {
			return d
		}
	}

	t.Fatalf("no decision for path %s", path)
	return nil
}

func TestPrimarySourceWins(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"x": "A"}),
		tmpl("b", map[string]string{"x": "B"}),
	}

	rules := []*strategy.FileRule{
		{Patterns: []string{"x"}, Strategy: strategy.Config{Type: strategy.OverwriteName}, PrimarySource: "a"},
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookupFromMap(nil),
		rules, strategy.Config{Type: strategy.MergeName}, reg, nil,
	)
	require.NoError(t, err)

	d := decisionFor(t, decisions, "x")
	assert.Equal(t, "A", string(d.Content))
	assert.Equal(t, "a", d.SourceTemplate)
	assert.Empty(t, d.Warnings)
}

func TestPrimarySourceMissingFallsBackWithWarning(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("b", map[string]string{"x": "B"}),
	}

	rules := []*strategy.FileRule{
		{Patterns: []string{"x"}, Strategy: strategy.Config{Type: strategy.OverwriteName}, PrimarySource: "a"},
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookupFromMap(nil),
		rules, strategy.Config{Type: strategy.MergeName}, reg, nil,
	)
	require.NoError(t, err)

	d := decisionFor(t, decisions, "x")
	assert.Equal(t, "B", string(d.Content))
	assert.Equal(t, "b", d.SourceTemplate)
	require.NotEmpty(t, d.Warnings)
}

func TestFirstTemplateWinsWithoutPrimarySource(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"x": "A"}),
		tmpl("b", map[string]string{"x": "B", "y": "Y"}),
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookupFromMap(nil),
		nil, strategy.Config{Type: strategy.OverwriteName}, reg, nil,
	)
	require.NoError(t, err)

	assert.Equal(t, "A", string(decisionFor(t, decisions, "x").Content))
	assert.Equal(t, "Y", string(decisionFor(t, decisions, "y").Content))
}

func TestSkipStrategyNeverTouchesExistingFiles(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"README.md": "template readme", "NEW.md": "new"}),
	}

	rules := []*strategy.FileRule{
		{Patterns: []string{"*.md"}, Strategy: strategy.Config{Type: strategy.SkipName}},
	}

	decisions, err := New().Plan(
		context.Background(), templates,
		lookupFromMap(map[string]string{"README.md": "customized"}),
		rules, strategy.Config{Type: strategy.MergeName}, reg, nil,
	)
	require.NoError(t, err)

	readme := decisionFor(t, decisions, "README.md")
	assert.Equal(t, ActionSkip, readme.Action)
	assert.Nil(t, readme.Content)

	// skip protects existing customizations, not absence
	added := decisionFor(t, decisions, "NEW.md")
	assert.Equal(t, ActionAdd, added.Action)
	assert.Equal(t, "new", string(added.Content))
}

func TestOverwriteAlwaysReplaces(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"Makefile": "template"}),
	}

	rules := []*strategy.FileRule{
		{Patterns: []string{"Makefile"}, Strategy: strategy.Config{Type: strategy.OverwriteName}},
	}

	decisions, err := New().Plan(
		context.Background(), templates,
		lookupFromMap(map[string]string{"Makefile": "customized"}),
		rules, strategy.Config{Type: strategy.MergeName}, reg, nil,
	)
	require.NoError(t, err)

	d := decisionFor(t, decisions, "Makefile")
	assert.Equal(t, ActionModify, d.Action)
	assert.Equal(t, "template", string(d.Content))
}

func TestCategoryRuleEndToEnd(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("t1", map[string]string{
			"tsconfig.json": "{}",
			"README.md":     "readme",
		}),
	}

	rules := []*strategy.FileRule{
		{Category: "typescript", Strategy: strategy.Config{Type: strategy.OverwriteName}},
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookupFromMap(nil),
		rules, strategy.Config{Type: strategy.MergeName}, reg, nil,
	)
	require.NoError(t, err)

	tsconfig := decisionFor(t, decisions, "tsconfig.json")
	assert.Equal(t, ActionAdd, tsconfig.Action)
	assert.Equal(t, strategy.OverwriteName, tsconfig.Strategy)

	readme := decisionFor(t, decisions, "README.md")
	assert.Equal(t, ActionAdd, readme.Action)
	assert.Equal(t, strategy.MergeName, readme.Strategy)
}

func TestLookupFailureIsRecordedPerFile(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"broken": "x", "ok": "y"}),
	}

	lookup := func(_ context.Context, path string) ([]byte, bool, error) {
		if path == "broken" {
			return nil, false, errors.New("boom")
		}

		return nil, false, nil
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookup,
		nil, strategy.Config{Type: strategy.OverwriteName}, reg, nil,
	)
	require.NoError(t, err)

	assert.NotEmpty(t, decisionFor(t, decisions, "broken").Err)
	assert.Empty(t, decisionFor(t, decisions, "ok").Err)
}

func TestPlanFailsWhenEveryFileFails(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"x": "x"}),
	}

	lookup := func(context.Context, string) ([]byte, bool, error) {
		return nil, false, errors.New("boom")
	}

	_, err := New().Plan(
		context.Background(), templates, lookup,
		nil, strategy.Config{Type: strategy.OverwriteName}, reg, nil,
	)
	require.Error(t, err)
}

func TestExcludePatternsSuppressDecisions(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	templates := []*fetcher.TemplateFiles{
		tmpl("a", map[string]string{"vendor/lib.go": "v", "main.go": "m"}),
	}

	decisions, err := New().Plan(
		context.Background(), templates, lookupFromMap(nil),
		nil, strategy.Config{Type: strategy.OverwriteName}, reg,
		[]string{"vendor/**"},
	)
	require.NoError(t, err)

	require.Len(t, decisions, 1)
	assert.Equal(t, "main.go", decisions[0].Path)
}
