//go:build linux

// Package rt applies process-level hints that keep the control loop on time.
package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory pins current and future pages so the control loop never takes a
// page fault mid-cycle. Needs CAP_IPC_LOCK or a sufficient RLIMIT_MEMLOCK.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("rt: mlockall: %w", err)
	}
	return nil
}

// UnlockMemory undoes LockMemory.
func UnlockMemory() error {
	return unix.Munlockall()
}
