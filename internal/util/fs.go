package util

import (
	"fmt"
	"os"
	"path/filepath"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin joins only the base name of name onto root, so uploaded names
// cannot escape root.
func SafeJoin(root, name string) string {
	return filepath.Join(root, filepath.Base(name))
}

// TotalSize sums the sizes of the given files. Missing files count as zero.
func TotalSize(paths []string) int64 {
	var total int64
	for _, p := range paths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			total += st.Size()
		}
	}
	return total
}
