package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory plus the list of outputs created
// outside it. Cleanup always removes the scratch directory; tracked
// outputs are removed too unless Keep was called. Callers defer Cleanup
// right after creating the workspace.
type Workspace struct {
	Dir     string
	created []string
	kept    bool
}

// NewWorkspace creates a scratch directory under root, or under the system
// temp directory when root is empty.
func NewWorkspace(root string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "docmark-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path returns name inside the scratch directory.
func (w *Workspace) Path(name ...string) string {
	return filepath.Join(append([]string{w.Dir}, name...)...)
}

// Subdir creates and returns a directory inside the workspace.
func (w *Workspace) Subdir(name string) (string, error) {
	dir := w.Path(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return dir, nil
}

// Track records an output path that did not exist before the operation.
func (w *Workspace) Track(path string) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	w.created = append(w.created, path)
}

// Created lists tracked outputs in creation order.
func (w *Workspace) Created() []string {
	return append([]string(nil), w.created...)
}

// Keep commits tracked outputs so Cleanup leaves them in place.
func (w *Workspace) Keep() { w.kept = true }

// Cleanup removes the scratch directory and, unless kept, every tracked output.
func (w *Workspace) Cleanup() error {
	var first error
	if !w.kept {
		for i := len(w.created) - 1; i >= 0; i-- {
			if err := os.RemoveAll(w.created[i]); err != nil && first == nil {
				first = err
			}
		}
	}
	if err := os.RemoveAll(w.Dir); err != nil && first == nil {
		first = err
	}
	return first
}
