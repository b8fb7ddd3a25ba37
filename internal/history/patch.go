package history

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/agusespa/upgradescope/internal/types"
)

// ParsePatch reads unified diff text into a Patch with per-hunk counts.
func ParsePatch(text string) (*types.Patch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	patch := &types.Patch{Text: text}
	for _, fd := range fileDiffs {
		for _, h := range fd.Hunks {
			patch.Hunks = append(patch.Hunks, parseHunk(h))
		}
	}
	return patch, nil
}

func parseHunk(h *godiff.Hunk) types.Hunk {
	out := types.Hunk{
		OldStart: int(h.OrigStartLine),
		OldLines: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewLines: int(h.NewLines),
	}
	for _, line := range strings.Split(string(h.Body), "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			out.Added++
		case '-':
			out.Removed++
		}
	}
	return out
}

// Stat summarizes a patch as "+added -removed".
func Stat(p *types.Patch) string {
	if p == nil {
		return ""
	}
	added, removed := 0, 0
	for _, h := range p.Hunks {
		added += h.Added
		removed += h.Removed
	}
	return fmt.Sprintf("+%d -%d", added, removed)
}
