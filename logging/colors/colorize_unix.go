//go:build !windows
// +build !windows

package colors

import (
	"fmt"
	"sync/atomic"
)

// enabled indicates whether ANSI escape codes are emitted.
var enabled atomic.Bool

// EnableColor enables colorized output. Non-windows systems are known to support ANSI escape codes.
func EnableColor() {
	enabled.Store(true)
}

// DisableColor disables colorized output.
func DisableColor() {
	enabled.Store(false)
}

// Colorize returns the string s wrapped in ANSI code c for non-windows systems, unless colors are disabled
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
func Colorize(s any, c Color) string {
	if !enabled.Load() {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}
