package crawler

import (
	"fmt"
	"path/filepath"
)

// RootDir is the directory of the index-th root article (1-based).
func RootDir(base string, index int) string {
	return filepath.Join(base, fmt.Sprintf("%03d", index))
}

// ChildDir is the directory of the index-th related article (1-based)
// under parent.
func ChildDir(parent string, index int) string {
	return filepath.Join(parent, fmt.Sprintf("related_%02d", index))
}

// NodeDir derives a node's directory from its root index and the child
// indices along the path from that root.
func NodeDir(base string, root int, children ...int) string {
	dir := RootDir(base, root)
	for _, child := range children {
		dir = ChildDir(dir, child)
	}
	return dir
}
