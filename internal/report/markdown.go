// Package report renders an analysis result for people.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/history"
	"github.com/agusespa/upgradescope/internal/types"
)

var families = []classify.Family{
	classify.FamilyClass,
	classify.FamilyMethod,
	classify.FamilyProperty,
	classify.FamilyConstant,
	classify.FamilyOther,
}

func RenderMarkdown(result *types.Result) string {
	var b strings.Builder
	b.WriteString("# Upgrade Compatibility Report\n\n")
	b.WriteString(fmt.Sprintf("**Before:** `%s`  \n", result.Before))
	b.WriteString(fmt.Sprintf("**After:** `%s`  \n", result.After))
	b.WriteString(fmt.Sprintf("**Consumers:** %s  \n", codeList(result.Consumers)))
	b.WriteString(fmt.Sprintf("**Run:** `%s` at %s\n\n", result.RunID, result.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	if len(result.ChangedClasses) == 0 && len(result.DeletedClasses) == 0 {
		b.WriteString("No vendor class changed in a way that can affect consumers.\n\n")
	}

	for _, c := range result.ChangedClasses {
		writeChangedClass(&b, c)
	}

	if len(result.DeletedClasses) > 0 {
		b.WriteString("## Deleted classes\n\n")
		for _, d := range result.DeletedClasses {
			b.WriteString(fmt.Sprintf("### `%s`\n", d.FQCN))
			b.WriteString(fmt.Sprintf("**File:** `%s`\n\n", d.Path))
			if len(d.Items) == 0 {
				b.WriteString("No consumer references this class.\n\n")
				continue
			}
			writeItems(&b, d.Items)
		}
	}

	if len(result.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range result.Diagnostics {
			b.WriteString(fmt.Sprintf("- %s\n", d))
		}
		b.WriteString("\n")
	}
	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			b.WriteString(fmt.Sprintf("- %s\n", w))
		}
		b.WriteString("\n")
	}

	t := result.Totals
	b.WriteString(fmt.Sprintf("\n**Summary:** %d items, %d resolved, %d need attention\n", t.Items, t.Resolved, t.Unresolved))
	return b.String()
}

func writeChangedClass(b *strings.Builder, c types.ClassChange) {
	b.WriteString(fmt.Sprintf("## %s `%s` (%s)\n", verdictIcon(c.Verdict), c.FQCN, c.Verdict))
	b.WriteString(fmt.Sprintf("**File:** `%s`\n", c.Path))
	if c.Patch != nil {
		b.WriteString(fmt.Sprintf("**Patch:** %s in %d hunks\n", history.Stat(c.Patch), len(c.Patch.Hunks)))
	}
	b.WriteString("\n")

	if len(c.BCDetails) == 0 {
		if len(c.Details) == 0 {
			b.WriteString("The class could not be compared structurally; review it by hand.\n\n---\n\n")
		} else {
			b.WriteString("No backward-incompatible change.\n\n---\n\n")
		}
		return
	}

	grouped := map[classify.Family][]string{}
	for i, d := range classify.ParseDetails(c.BCDetails) {
		f := d.Kind.Family()
		grouped[f] = append(grouped[f], c.BCDetails[i])
	}
	b.WriteString("**Breaking changes:**\n\n")
	for _, f := range families {
		lines := grouped[f]
		if len(lines) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s\n", f))
		for _, l := range lines {
			b.WriteString(fmt.Sprintf("  - %s\n", l))
		}
	}
	b.WriteString("\n")

	if len(c.Items) == 0 {
		b.WriteString("No consumer uses the changed members.\n\n---\n\n")
		return
	}
	writeItems(b, c.Items)
	b.WriteString("---\n\n")
}

func writeItems(b *strings.Builder, items []types.Item) {
	b.WriteString("| | Type | Dependent | Member | Relation | Note |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, it := range items {
		b.WriteString(fmt.Sprintf("| %s | %s | `%s` | %s | %s | %s |\n",
			resolvedIcon(it.Resolved), it.Type, it.Dependent, cell(it.Member), it.Relation, cell(it.Note)))
	}
	b.WriteString("\n")

	for _, it := range items {
		if len(it.ParamDiff) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("`%s::%s` parameters:\n", it.Dependent, it.Member))
		b.WriteString("```diff\n")
		for _, line := range it.ParamDiff {
			b.WriteString(line + "\n")
		}
		b.WriteString("```\n\n")
	}
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func verdictIcon(v types.Verdict) string {
	switch v {
	case types.VerdictLogic:
		return "🔴"
	case types.VerdictSignature:
		return "🟡"
	default:
		return "🔵"
	}
}

func resolvedIcon(resolved bool) string {
	if resolved {
		return "✅"
	}
	return "❌"
}

func WriteMarkdown(path string, result *types.Result) error {
	return writeFile(path, []byte(RenderMarkdown(result)))
}

func WriteJSON(path string, result *types.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes the short end-of-run summary shown on the terminal.
func PrintSummary(w io.Writer, result *types.Result, reportPath string) {
	fmt.Fprintln(w, "---")
	if result.FromCache {
		fmt.Fprintf(w, "♻️ Reused cached result of run %s\n", result.RunID)
	}
	t := result.Totals
	if t.Unresolved > 0 {
		fmt.Fprintf(w, "⚠️ %d of %d consumer usages need attention across %d changed and %d deleted classes\n",
			t.Unresolved, t.Items, len(result.ChangedClasses), len(result.DeletedClasses))
	} else {
		fmt.Fprintf(w, "✅ All %d consumer usages are unaffected\n", t.Items)
	}
	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(w, "%d warnings, see the report\n", n)
	}
	if reportPath != "" {
		fmt.Fprintf(w, "💾 Detailed report saved to %s\n", reportPath)
	}
}
