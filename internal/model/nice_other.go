//go:build !linux

package model

import "errors"

func setThreadNice(int) error {
	return errors.New("thread priority is not supported on this platform")
}
