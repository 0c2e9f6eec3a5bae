package publisher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pradeepmouli/repoweaver/internal/planner"
)

// prBody generates the pull request description.
// Conflicts and warnings are surfaced inline so a human reviewer sees them
// without needing system access.
func prBody(decisions []*planner.Decision, templateNames []string, primarySources map[string]string) string {
	var b strings.Builder

	var added, modified, skipped, failed int
	var conflicts, warnings []string

	for _, d := range decisions {
		if d.Err != "" {
			failed++
			continue
		}

		switch d.Action {
		case planner.ActionAdd:
			added++
		case planner.ActionModify:
			modified++
		case planner.ActionSkip:
			skipped++
		}

		for _, c := range d.Conflicts {
			conflicts = append(conflicts, fmt.Sprintf("`%s`: %s", d.Path, c))
		}

		for _, w := range d.Warnings {
			warnings = append(warnings, fmt.Sprintf("`%s`: %s", d.Path, w))
		}
	}

	fmt.Fprintf(&b, "Applies templates: %s\n\n", joinNames(templateNames))
	fmt.Fprintf(&b, "| Action | Files |\n|---|---|\n")
	fmt.Fprintf(&b, "| added | %d |\n", added)
	fmt.Fprintf(&b, "| modified | %d |\n", modified)
	fmt.Fprintf(&b, "| skipped | %d |\n", skipped)

	if failed > 0 {
		fmt.Fprintf(&b, "| failed | %d |\n", failed)
	}

	b.WriteString("\n## Files\n\n")

	for _, d := range decisions {
		if d.Err != "" {
			fmt.Fprintf(&b, "- `%s`: failed (%s)\n", d.Path, d.Err)
			continue
		}

		if d.Action == planner.ActionSkip {
			fmt.Fprintf(&b, "- `%s`: skipped (%s)\n", d.Path, d.Strategy)
			continue
		}

		fmt.Fprintf(&b, "- `%s`: %s (%s, from %s)\n", d.Path, d.Action, d.Strategy, d.SourceTemplate)
	}

	if len(conflicts) > 0 {
		b.WriteString("\n## Conflicts\n\n")

		for _, c := range conflicts {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")

		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if len(primarySources) > 0 {
		b.WriteString("\n## Primary sources\n\n")

		selectors := make([]string, 0, len(primarySources))
		for selector := range primarySources {
			selectors = append(selectors, selector)
		}
		sort.Strings(selectors)

		for _, selector := range selectors {
			fmt.Fprintf(&b, "- `%s`: %s\n", selector, primarySources[selector])
		}
	}

	return b.String()
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}

	return strings.Join(names, ", ")
}
