package services

import (
	"path/filepath"
	"strings"
)

// SafeJoin joins target under root/sub, refusing paths that climb out.
// It returns "" for rejected targets.
func SafeJoin(root, sub, target string) string {
	cleanTarget := filepath.Clean("/" + target)
	if strings.Contains(target, "..") {
		return ""
	}
	return filepath.Join(root, sub, cleanTarget)
}
