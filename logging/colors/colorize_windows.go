//go:build windows
// +build windows

package colors

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// enabled indicates whether ANSI escape codes are emitted.
var enabled atomic.Bool

// EnableColor will make a kernel call to enable virtual terminal processing on the stdout channel, which is required
// for ANSI escape codes to be interpreted on Windows. Colors remain disabled if the console does not support it.
func EnableColor() {
	handle := windows.Handle(os.Stdout.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		enabled.Store(false)
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
		if err := windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
			enabled.Store(false)
			return
		}
	}
	enabled.Store(true)
}

// DisableColor disables colorized output.
func DisableColor() {
	enabled.Store(false)
}

// Colorize returns the string s wrapped in ANSI code c assuming that ANSI is supported on the Windows version
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	// If ANSI is not supported then just return the original string
	if !enabled.Load() {
		return fmt.Sprintf("%v", s)
	}

	// Otherwise, returned an ANSI-wrapped string
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
