//go:build !unix

package lock

import (
	"errors"
	"os"
)

// No flock here: Acquire treats locking as disabled.
const supported = false

func tryLock(*os.File) (bool, error) { return false, errors.ErrUnsupported }

func unlock(*os.File) error { return nil }
