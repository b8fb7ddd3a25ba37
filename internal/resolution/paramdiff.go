package resolution

import (
	"github.com/agusespa/upgradescope/internal/types"
)

// ParamDiff aligns two parameter lists by position. Unchanged positions are
// prefixed with two spaces; a differing position yields a "-" line for the
// consumer's parameter followed by a "+" line for the vendor's.
func ParamDiff(vendor, consumer []types.ParamInfo) []string {
	n := max(len(vendor), len(consumer))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var v, c string
		if i < len(vendor) {
			v = vendor[i].String()
		}
		if i < len(consumer) {
			c = consumer[i].String()
		}
		if v == c {
			out = append(out, "  "+v)
			continue
		}
		if c != "" {
			out = append(out, "- "+c)
		}
		if v != "" {
			out = append(out, "+ "+v)
		}
	}
	return out
}
