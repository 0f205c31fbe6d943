package acquire

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mvp-joe/archaeologist/internal/config"
)

// GitAcquirer clones remote repositories into per-run directories under
// WorkDir. Clones are retained after the run.
type GitAcquirer struct {
	GitPath string
	WorkDir string
	Depth   int // 0 clones full history

	now func() time.Time
}

var _ Acquirer = (*GitAcquirer)(nil)

// NewGit creates a GitAcquirer from configuration.
func NewGit(cfg config.AcquireConfig) *GitAcquirer {
	gitPath := cfg.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	return &GitAcquirer{
		GitPath: gitPath,
		WorkDir: cfg.WorkDir,
		Depth:   cfg.Depth,
		now:     time.Now,
	}
}

// Acquire clones location into <WorkDir>/<unix-millis>.
func (g *GitAcquirer) Acquire(ctx context.Context, location string) (*Source, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: empty location", ErrAcquisitionFailed)
	}

	workDir, err := filepath.Abs(g.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create workdir: %v", ErrAcquisitionFailed, err)
	}

	dir := g.cloneDir(workDir)

	args := []string{"clone"}
	if g.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(g.Depth))
	}
	args = append(args, "--", location, dir)

	cmd := exec.CommandContext(ctx, g.GitPath, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrAcquisitionFailed, location, err, strings.TrimSpace(string(output)))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: clone directory %s missing after clone", ErrAcquisitionFailed, location, dir)
	}

	return &Source{
		Location: location,
		Dir:      dir,
		Revision: g.revision(dir),
		Branch:   g.currentBranch(dir),
	}, nil
}

// cloneDir picks an unused <unix-millis> directory name.
func (g *GitAcquirer) cloneDir(workDir string) string {
	stamp := g.now().UnixMilli()
	for {
		dir := filepath.Join(workDir, strconv.FormatInt(stamp, 10))
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return dir
		}
		stamp++
	}
}

func (g *GitAcquirer) revision(dir string) string {
	return gitOutput(g.GitPath, dir, "rev-parse", "HEAD")
}

// currentBranch returns the branch name, or "detached-{short-hash}" for a
// detached HEAD, or "" when git fails.
func (g *GitAcquirer) currentBranch(dir string) string {
	if branch := gitOutput(g.GitPath, dir, "branch", "--show-current"); branch != "" {
		return branch
	}
	if short := gitOutput(g.GitPath, dir, "rev-parse", "--short", "HEAD"); short != "" {
		return "detached-" + short
	}
	return ""
}

func gitOutput(gitPath, dir string, args ...string) string {
	cmd := exec.Command(gitPath, args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
