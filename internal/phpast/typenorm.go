package phpast

import (
	"sort"
	"strings"
)

// NormalizeType canonicalizes a type declaration string. Leading namespace
// separators are stripped, class names are resolved through resolve when it is
// non-nil, builtins are lowercased, "?T" becomes "T|null", and union and
// intersection members are sorted so that member order never matters.
func NormalizeType(raw string, resolve func(string) string) string {
	t := strings.Join(strings.Fields(raw), "")
	if t == "" {
		return ""
	}
	if strings.HasPrefix(t, "?") {
		t = t[1:] + "|null"
	}
	parts := splitTopLevel(t, '|')
	if len(parts) == 1 && !strings.HasPrefix(parts[0], "(") {
		return normalizeIntersection(parts[0], resolve, false)
	}
	out := make([]string, 0, len(parts))
	seen := map[string]bool{}
	for _, p := range parts {
		var norm string
		if strings.HasPrefix(p, "(") && strings.HasSuffix(p, ")") {
			norm = normalizeIntersection(p[1:len(p)-1], resolve, true)
		} else {
			norm = normalizeIntersection(p, resolve, true)
		}
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	sort.Strings(out)
	return strings.Join(out, "|")
}

func normalizeIntersection(t string, resolve func(string) string, wrap bool) string {
	members := splitTopLevel(t, '&')
	if len(members) == 1 {
		return normalizeAtom(members[0], resolve)
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, normalizeAtom(m, resolve))
	}
	sort.Strings(out)
	joined := strings.Join(out, "&")
	if wrap {
		return "(" + joined + ")"
	}
	return joined
}

func normalizeAtom(t string, resolve func(string) string) string {
	t = strings.Trim(t, "()")
	if t == "" {
		return ""
	}
	if IsBuiltinType(strings.TrimPrefix(t, `\`)) && !strings.Contains(strings.TrimPrefix(t, `\`), `\`) {
		return strings.ToLower(strings.TrimPrefix(t, `\`))
	}
	if resolve != nil {
		return strings.TrimPrefix(resolve(t), `\`)
	}
	return strings.TrimPrefix(t, `\`)
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// TypesEqual compares two type strings after normalization. Both absent counts as equal.
func TypesEqual(a, b string) bool {
	return NormalizeType(a, nil) == NormalizeType(b, nil)
}
