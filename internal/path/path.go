// Package path provides logical-path normalisation for attachments.
//
// Every attachment path passes through this package before it reaches the
// store or the container codec. Logical paths are relative, forward-slash
// separated, and free of traversal sequences, so the same path is safe as a
// map key, a ZIP entry name, and a filesystem path inside an unpacked
// workspace.
//
// Normalisation rules:
//   - Backslashes are converted to forward slashes
//   - Empty segments and "." segments are dropped ("a/./b" becomes "a/b")
//   - Leading slashes are rejected (no absolute paths)
//   - ".." segments are rejected (no traversal)
//   - Null bytes are rejected
//   - A path that normalises to nothing is rejected
package path

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid indicates the provided logical path is invalid.
var ErrInvalid = errors.New("invalid logical path")

// Normalise cleans and validates a logical attachment path.
func Normalise(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalid)
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: null byte in path", ErrInvalid)
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return "", fmt.Errorf("%w: %q must not start with a separator", ErrInvalid, p)
	}

	p = strings.ReplaceAll(p, "\\", "/")

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: %q must not contain '..'", ErrInvalid, p)
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q resolves to empty", ErrInvalid, p)
	}
	return strings.Join(segments, "/"), nil
}
