// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// WorkspaceAdapter implements secondary.WorkspaceAdapter rooted at a repo.
type WorkspaceAdapter struct {
	root string
}

// NewWorkspaceAdapter creates a workspace adapter. An empty root defaults to
// the current working directory.
func NewWorkspaceAdapter(root string) (*WorkspaceAdapter, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	return &WorkspaceAdapter{root: root}, nil
}

// Root returns the repository root path.
func (a *WorkspaceAdapter) Root() string {
	return a.root
}

// CreateSpecDir creates docs/<spec-id>-<slug>/ and returns its path.
func (a *WorkspaceAdapter) CreateSpecDir(ctx context.Context, specID, slug string) (string, error) {
	name := specID
	if slug != "" {
		name = specID + "-" + slug
	}
	dir := filepath.Join(a.root, "docs", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create spec directory: %w", err)
	}
	return dir, nil
}

// FindSpecDir locates the directory for a spec ID, slug unknown.
func (a *WorkspaceAdapter) FindSpecDir(ctx context.Context, specID string) (string, error) {
	docs := filepath.Join(a.root, "docs")
	entries, err := os.ReadDir(docs)
	if err != nil {
		return "", fmt.Errorf("failed to read docs directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == specID || strings.HasPrefix(name, specID+"-") {
			return filepath.Join(docs, name), nil
		}
	}
	return "", fmt.Errorf("spec directory for %s not found under %s", specID, docs)
}

// WriteStageDoc writes a stage projection into the spec directory.
func (a *WorkspaceAdapter) WriteStageDoc(ctx context.Context, specID, name, content string) (string, error) {
	dir, err := a.FindSpecDir(ctx, specID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// ReadStageDoc reads a stage projection.
func (a *WorkspaceAdapter) ReadStageDoc(ctx context.Context, specID, name string) (string, error) {
	dir, err := a.FindSpecDir(ctx, specID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// StageDocExists reports whether a stage projection exists.
func (a *WorkspaceAdapter) StageDocExists(ctx context.Context, specID, name string) (bool, error) {
	dir, err := a.FindSpecDir(ctx, specID)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EvidenceDir returns the evidence/ directory inside the spec directory,
// creating it.
func (a *WorkspaceAdapter) EvidenceDir(ctx context.Context, specID string) (string, error) {
	specDir, err := a.FindSpecDir(ctx, specID)
	if err != nil {
		specDir = filepath.Join(a.root, "docs", specID)
	}
	dir := filepath.Join(specDir, "evidence")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return dir, nil
}

// WriteEvidence writes a JSON evidence file and returns its path.
func (a *WorkspaceAdapter) WriteEvidence(ctx context.Context, specID, filename string, data []byte) (string, error) {
	dir, err := a.EvidenceDir(ctx, specID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write evidence file: %w", err)
	}
	return path, nil
}

// ListEvidence returns evidence filenames beginning with prefix, sorted.
func (a *WorkspaceAdapter) ListEvidence(ctx context.Context, specID, prefix string) ([]string, error) {
	specDir, err := a.FindSpecDir(ctx, specID)
	if err != nil {
		specDir = filepath.Join(a.root, "docs", specID)
	}
	entries, err := os.ReadDir(filepath.Join(specDir, "evidence"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if prefix == "" || strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteVision writes the project intake projection memory/NL_VISION.md.
func (a *WorkspaceAdapter) WriteVision(ctx context.Context, content string) (string, error) {
	dir := filepath.Join(a.root, "memory")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create memory directory: %w", err)
	}
	path := filepath.Join(dir, "NL_VISION.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write NL_VISION.md: %w", err)
	}
	return path, nil
}

// IsWorkTreeClean reports whether the repo has no uncommitted changes.
// A non-git root counts as clean.
func (a *WorkspaceAdapter) IsWorkTreeClean(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = a.root
	output, err := cmd.Output()
	if err != nil {
		return true, nil
	}
	return len(strings.TrimSpace(string(output))) == 0, nil
}
