// Package history retrieves the textual patch of a vendor file between the
// two versions under comparison. It is the only optional phase of a run.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/agusespa/upgradescope/internal/types"
)

// ErrGitUnavailable is returned when the git binary cannot be run.
var ErrGitUnavailable = errors.New("git unavailable")

// Retriever produces patches with git's no-index diff, so the two trees do
// not need to live in a repository.
type Retriever struct {
	gitBinary    string
	contextLines int
}

func NewRetriever(gitBinary string, contextLines int) *Retriever {
	if gitBinary == "" {
		gitBinary = "git"
	}
	if contextLines < 0 {
		contextLines = 3
	}
	return &Retriever{gitBinary: gitBinary, contextLines: contextLines}
}

// Available reports whether the configured git binary can be found.
func (r *Retriever) Available() bool {
	_, err := exec.LookPath(r.gitBinary)
	return err == nil
}

// Patch diffs beforeFile against afterFile. Identical files yield a nil patch.
func (r *Retriever) Patch(ctx context.Context, beforeFile, afterFile string) (*types.Patch, error) {
	if !r.Available() {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrGitUnavailable, r.gitBinary)
	}

	cmd := exec.CommandContext(ctx, r.gitBinary,
		"diff", "--no-index", "--no-color", "-U"+strconv.Itoa(r.contextLines),
		"--", beforeFile, afterFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		// Exit status 1 means the files differ.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("failed to diff %s: %w: %s", afterFile, err, bytes.TrimSpace(stderr.Bytes()))
		}
	}
	if len(output) == 0 {
		return nil, nil
	}
	return ParsePatch(string(output))
}
