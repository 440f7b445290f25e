package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitCommitter stages and commits a project tree. Commits are best-effort:
// a tree with nothing to commit is success, not failure.
type GitCommitter struct {
	writer *FileWriter
}

// NewGitCommitter creates a committer scoped to the writer's sandbox root.
func NewGitCommitter(writer *FileWriter) *GitCommitter {
	return &GitCommitter{writer: writer}
}

// Commit stages everything under the project directory and commits with
// the given message. Returns true if a commit was created, false if the
// tree was clean.
func (g *GitCommitter) Commit(ctx context.Context, projectID, message string) (bool, error) {
	if strings.TrimSpace(message) == "" {
		return false, fmt.Errorf("commit message is empty")
	}
	dir, err := g.writer.Resolve(projectID)
	if err != nil {
		return false, err
	}

	if out, err := runGit(ctx, dir, "add", "-A"); err != nil {
		return false, fmt.Errorf("git add failed: %s: %w", strings.TrimSpace(out), err)
	}

	out, err := runGit(ctx, dir, "commit", "-m", message)
	if err != nil {
		if strings.Contains(out, "nothing to commit") {
			return false, nil
		}
		return false, fmt.Errorf("git commit failed: %s: %w", strings.TrimSpace(out), err)
	}
	return true, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// Register adds the git_commit tool to a registry.
func (g *GitCommitter) Register(r *Registry) error {
	def := Definition{
		Name:        NameGitCommit,
		Description: "Stages and commits the project tree. A clean tree is treated as success.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "minLength": 1},
				"message":    {"type": "string", "minLength": 1}
			},
			"required": ["project_id", "message"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		projectID, _ := GetString(args, "project_id")
		message, _ := GetString(args, "message")
		committed, err := g.Commit(ctx, projectID, message)
		if err != nil {
			return nil, err
		}
		return map[string]any{"committed": committed}, nil
	})
}
