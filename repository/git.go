// Package repository checks out the git repositories that publish semantic
// assets.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidURL is returned for repository URLs that cannot be cloned.
var ErrInvalidURL = errors.New("invalid repository URL")

// allowedProtocols defines the git URL protocols that are permitted.
var allowedProtocols = map[string]bool{
	"https": true,
	"git":   true,
	"ssh":   true,
}

// slugPattern validates that a slug contains only safe characters.
var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateURL checks that a git URL uses an allowed protocol.
func ValidateURL(rawURL string) error {
	// Handle SSH shorthand (git@github.com:owner/repo.git)
	if strings.HasPrefix(rawURL, "git@") {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedProtocols[scheme] {
		return fmt.Errorf("%w: protocol %q not allowed; must be https, git, or ssh", ErrInvalidURL, scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

// validateSlug ensures a slug is safe for use in file paths.
func validateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.Contains(slug, "..") {
		return fmt.Errorf("path traversal not allowed")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug format")
	}
	if len(slug) > 255 {
		return fmt.Errorf("slug too long")
	}
	return nil
}

// Slug derives a file-system safe name from a repository URL:
// owner-repo, lower-cased.
func Slug(repoURL string) string {
	repoURL = strings.TrimSuffix(repoURL, "/")
	repoURL = strings.TrimSuffix(repoURL, ".git")
	repoURL = strings.ReplaceAll(repoURL, ":", "/")

	parts := strings.Split(repoURL, "/")
	var slug string
	if len(parts) >= 2 {
		slug = parts[len(parts)-2] + "-" + parts[len(parts)-1]
	} else {
		slug = parts[len(parts)-1]
	}

	slug = strings.ToLower(slug)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	if slug == "" || slug == "-" {
		return "repo"
	}
	return slug
}

// Name extracts a display name from a repository URL.
func Name(repoURL string) string {
	repoURL = strings.TrimSuffix(repoURL, "/")
	repoURL = strings.TrimSuffix(repoURL, ".git")

	parts := strings.Split(repoURL, "/")
	return parts[len(parts)-1]
}

// Git clones repositories into a working directory with the git binary.
type Git struct {
	workDir      string
	cloneTimeout time.Duration
	cloneDepth   int
	logger       *slog.Logger
}

// NewGit creates a git source cloning below workDir. A zero cloneTimeout
// means five minutes.
func NewGit(workDir string, cloneTimeout time.Duration, cloneDepth int, logger *slog.Logger) *Git {
	if cloneTimeout <= 0 {
		cloneTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{
		workDir:      workDir,
		cloneTimeout: cloneTimeout,
		cloneDepth:   cloneDepth,
		logger:       logger,
	}
}

// Clone checks out branch of repoURL (the default branch when empty) into a
// fresh directory and returns its path.
func (g *Git) Clone(ctx context.Context, repoURL, branch string) (string, error) {
	if err := ValidateURL(repoURL); err != nil {
		return "", err
	}

	slug := Slug(repoURL)
	if err := validateSlug(slug); err != nil {
		return "", fmt.Errorf("invalid repository slug: %w", err)
	}

	if err := os.MkdirAll(g.workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	// Concurrent runs of different repositories may share the work dir.
	destPath := filepath.Join(g.workDir, slug+"-"+uuid.NewString()[:8])

	cloneCtx, cancel := context.WithTimeout(ctx, g.cloneTimeout)
	defer cancel()

	args := []string{"clone", "--quiet"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	if g.cloneDepth > 0 {
		args = append(args, "--depth", fmt.Sprintf("%d", g.cloneDepth))
	}
	args = append(args, repoURL, destPath)

	start := time.Now()
	cmd := exec.CommandContext(cloneCtx, "git", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(destPath)
		return "", fmt.Errorf("git clone failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	g.logger.Info("Cloned repository",
		"url", repoURL,
		"branch", branch,
		"path", destPath,
		"duration", time.Since(start))
	return destPath, nil
}

// Remove deletes a checkout created by Clone. Paths outside the work dir
// are refused.
func (g *Git) Remove(root string) error {
	absWork, err := filepath.Abs(g.workDir)
	if err != nil {
		return fmt.Errorf("resolve work dir: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve checkout: %w", err)
	}
	rel, err := filepath.Rel(absWork, absRoot)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s: not inside %s", root, g.workDir)
	}
	if err := os.RemoveAll(absRoot); err != nil {
		return fmt.Errorf("remove checkout: %w", err)
	}
	return nil
}

// HeadCommit returns the HEAD commit SHA of a checkout.
func HeadCommit(ctx context.Context, repoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Local serves a checkout that already exists on disk. Clone returns the
// directory unchanged and Remove leaves it in place.
type Local struct {
	Root string
}

// Clone returns the local root.
func (l Local) Clone(_ context.Context, _, _ string) (string, error) {
	info, err := os.Stat(l.Root)
	if err != nil {
		return "", fmt.Errorf("stat checkout: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("checkout %s is not a directory", l.Root)
	}
	return l.Root, nil
}

// Remove does nothing.
func (Local) Remove(string) error { return nil }
