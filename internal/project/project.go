// Package project locates the project root that owns a scene file.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"smedge-submit/internal/model"
)

// MarkerFile sits at the root of every project. Only its existence matters.
const MarkerFile = "workspace.mel"

// FindProject returns the nearest ancestor of path that holds MarkerFile.
func FindProject(path string) (string, error) {
	return Find(path, MarkerFile)
}

// Find walks from path towards the filesystem root and returns the first
// directory containing marker. A directory path is searched itself first; a
// file path starts at its parent.
func Find(path, marker string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("project not found for %s (no %s in any parent directory): %w", abs, marker, model.ErrNotFound)
}

// RelScene returns scenePath relative to projectDir. The scene must live
// inside the project.
func RelScene(projectDir, scenePath string) (string, error) {
	rel, err := filepath.Rel(projectDir, scenePath)
	if err != nil {
		return "", fmt.Errorf("scene %s is not inside project %s: %w", scenePath, projectDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("scene %s is not inside project %s", scenePath, projectDir)
	}
	return rel, nil
}
