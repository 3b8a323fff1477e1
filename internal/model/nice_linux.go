//go:build linux

package model

import "golang.org/x/sys/unix"

// setThreadNice sets the nice value of the calling OS thread.
func setThreadNice(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice)
}
