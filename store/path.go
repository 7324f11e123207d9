package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for filenames that are not a single path
// element inside the storage root.
var ErrInvalidName = errors.New("invalid filename")

// validateName rejects anything but a plain file name.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is not a file", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: path separators not allowed", ErrInvalidName)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: NUL not allowed", ErrInvalidName)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: absolute path not allowed", ErrInvalidName)
	}
	return nil
}

// resolve maps name onto a path directly beneath root.
func resolve(root, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	p := filepath.Join(root, name)
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if rel != name || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: escapes storage root", ErrInvalidName)
	}
	return p, nil
}
