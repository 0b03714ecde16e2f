// Package pathutil normalizes user-supplied filesystem paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUserAndEnv expands environment variable tokens (for example
// $HOME, ${HOME}) and a leading "~" to the current user's home
// directory. The result is not made absolute; callers decide how to
// treat relative paths.
func ExpandUserAndEnv(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(p) == 1 {
			p = home
		} else if p[1] == '/' || p[1] == '\\' {
			p = filepath.Join(home, p[2:])
		}
	}
	return p, nil
}

// Resolve expands p like ExpandUserAndEnv and then makes it absolute.
// Empty input resolves to empty output.
func Resolve(p string) (string, error) {
	expanded, err := ExpandUserAndEnv(p)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", nil
	}
	return filepath.Abs(expanded)
}
