package appconfig

import (
	"context"

	"github.com/savaki/stagectl/internal/runner"
)

// GitBranchLookup asks git for the checked out branch
type GitBranchLookup struct {
	Runner runner.Runner
	Dir    string
}

func (g GitBranchLookup) CurrentBranch(ctx context.Context) (string, error) {
	args := []string{"rev-parse", "--abbrev-ref", "HEAD"}
	if g.Dir != "" {
		args = append([]string{"-C", g.Dir}, args...)
	}

	branch, err := g.Runner.Output(ctx, "git", args...)
	if err != nil {
		return "", err
	}

	// detached head
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}
