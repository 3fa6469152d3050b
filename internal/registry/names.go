package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxNameLen bounds an alias. Names end up in argv[0] of the child and in
// every ps listing.
const MaxNameLen = 64

// ErrInvalidName is wrapped by every alias validation failure.
var ErrInvalidName = errors.New("invalid process name")

// An alias starts alphanumeric so it cannot be read as a flag by the
// selectors or as "."/".." in paths, and stays ASCII so that "exec -a"
// and terminal output show it verbatim.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// NormalizeName trims raw and checks it is a usable process alias. An empty
// result with a nil error means no alias was given.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", nil
	case len(name) > MaxNameLen:
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, MaxNameLen)
	case !namePattern.MatchString(name):
		return "", fmt.Errorf("%w: %q (use letters, digits, '.', '-' and '_', starting with a letter or digit)", ErrInvalidName, name)
	}
	return name, nil
}
