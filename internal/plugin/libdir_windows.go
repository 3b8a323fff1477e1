//go:build windows

package plugin

import (
	"golang.org/x/sys/windows"

	"modelcore/internal/status"
)

const libraryDirectoryOverride = true

var procSetDllDirectoryW = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetDllDirectoryW")

func setLibraryDirectory(dir string) (func(), error) {
	if err := windows.SetDllDirectory(dir); err != nil {
		return nil, status.Newf(status.Internal, "failed to set dll directory '%s': %v", dir, err)
	}
	return func() {
		// A NULL argument restores the default search order.
		_, _, _ = procSetDllDirectoryW.Call(0)
	}, nil
}
