// Package hasher produces content digests of PHP syntax subtrees. Two subtrees
// digest identically iff their canonical renderings are equal, which makes
// formatting, comments and the override marker invisible while any change to
// an operator, call target, argument or literal is not.
package hasher

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Digest returns the hex digest of n's canonical rendering. A nil node, or one
// that renders empty, digests to "".
func Digest(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return DigestString(Canonical(n, src))
}

// DigestString hashes an already-rendered canonical string.
func DigestString(canonical string) string {
	if canonical == "" {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

// DigestAll digests a sequence of nodes as one unit, in order.
func DigestAll(nodes []*sitter.Node, src []byte) string {
	var combined string
	for i, n := range nodes {
		if i > 0 {
			combined += ";"
		}
		combined += Canonical(n, src)
	}
	return DigestString(combined)
}
