//go:build !linux

package rt

import "errors"

// ErrUnsupported is returned on platforms without memory locking.
var ErrUnsupported = errors.New("rt: memory locking not supported on this platform")

// LockMemory is a no-op outside linux.
func LockMemory() error {
	return ErrUnsupported
}

// UnlockMemory is a no-op outside linux.
func UnlockMemory() error {
	return nil
}
