package store

import (
	"io/fs"
	"path/filepath"
)

// DiskUsage returns the best-effort on-disk size of the catalog directory
// in bytes. Used by the admin stats endpoint.
func (c *Catalog) DiskUsage() uint64 {
	if c == nil || c.path == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(c.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
