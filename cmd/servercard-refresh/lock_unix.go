// Single-instance guard for the refresher on Unix-like systems.
//
// The lock is an advisory flock(2) taken with LOCK_NB on the refresher's
// lock file next to the message-id file, so a second refresher sharing that
// file exits at once instead of posting duplicate webhook messages.

//go:build !windows

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive flock(2) on f, failing immediately with
// EWOULDBLOCK when another process holds it.
func lockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return fmt.Errorf("lock file %s: %w", f.Name(), err)
	}
	return nil
}

func unlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock file %s: %w", f.Name(), err)
	}
	return nil
}
