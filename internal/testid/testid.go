// Package testid implements the naming rules for benchmark test
// identifiers: a test-set ID (for example "d-c-50") suffixed with a
// zero-padded numeric replica ordinal ("d-c-50-01"). Result tarballs
// and archives are keyed by these names throughout the workspace.
package testid

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// MinReplicaWidth is the smallest zero-pad width applied to replica
// ordinals, regardless of the replica count.
const MinReplicaWidth = 2

var resultNameRe = regexp.MustCompile(`^(.+)-(\d+)\.tar\.gz$`)

// ReplicaWidth returns the zero-pad width for replica ordinals given
// the largest replica count across all test sets.
func ReplicaWidth(maxReplicas int) int {
	width := len(strconv.Itoa(maxReplicas))
	if width < MinReplicaWidth {
		width = MinReplicaWidth
	}
	return width
}

// FormatReplica renders a replica run ID: the set ID plus the ordinal
// left-padded with zeros to width.
func FormatReplica(setID string, ordinal, width int) string {
	return fmt.Sprintf("%s-%0*d", setID, width, ordinal)
}

// Pad left-pads the decimal string digits with zeros to width. Inputs
// already at or above width are returned unchanged, preserving the
// numeric value in all cases.
func Pad(digits string, width int) string {
	if len(digits) >= width {
		return digits
	}
	return strings.Repeat("0", width-len(digits)) + digits
}

// ParseResultName splits a result tarball name of the form
// "<set-id>-<replica>.tar.gz" into its set ID and replica ordinal.
// Leading path components are ignored.
func ParseResultName(name string) (setID string, replica int, ok bool) {
	m := resultNameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// ArchiveBase returns the archive's base name: the file name up to the
// first dot ("d-c-50.tar.gz" -> "d-c-50").
func ArchiveBase(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}
