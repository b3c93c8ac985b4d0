//go:build linux

package main

import (
	"log"

	"golang.org/x/sys/unix"
)

// lockMemory pins the process memory so page faults do not stall sampling.
// Failure (usually missing CAP_IPC_LOCK) is logged and ignored.
func lockMemory() {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Printf("mlockall failed, sampling may jitter: %v", err)
	}
}
