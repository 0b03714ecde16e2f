package expconf

import (
	"io/fs"
	"path/filepath"

	"github.com/overheadlab/benchpack/internal/testid"
)

// CompletedSet records which replica ordinals already have a result
// tarball, keyed by set ID.
type CompletedSet map[string]map[int]bool

// Has reports whether the given replica of setID is recorded.
func (c CompletedSet) Has(setID string, ordinal int) bool {
	return c[setID][ordinal]
}

// Add records a completed replica.
func (c CompletedSet) Add(setID string, ordinal int) {
	replicas := c[setID]
	if replicas == nil {
		replicas = make(map[int]bool)
		c[setID] = replicas
	}
	replicas[ordinal] = true
}

// ScanCompleted walks resultsDir for "<set-id>-<replica>.tar.gz" files
// and returns the completed replicas they represent. A missing or
// unreadable directory yields an empty set; callers fall back to the
// per-set Completed counters in that case.
func ScanCompleted(resultsDir string) CompletedSet {
	completed := make(CompletedSet)
	_ = filepath.WalkDir(resultsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if setID, replica, ok := testid.ParseResultName(path); ok {
			completed.Add(setID, replica)
		}
		return nil
	})
	return completed
}
