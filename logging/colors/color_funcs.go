package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a ColorFunc that formats its input without color. It resets the color context of a log message.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// Bold is a ColorFunc that returns a bolded string of the provided input
func Bold(s any) string {
	return Colorize(s, BOLD)
}

// The ColorFuncs below colorize their input, optionally in bold. They are used for log levels and diagnostics.
var (
	Red        = colored(RED, false)
	RedBold    = colored(RED, true)
	Green      = colored(GREEN, false)
	GreenBold  = colored(GREEN, true)
	Yellow     = colored(YELLOW, false)
	YellowBold = colored(YELLOW, true)
	Blue       = colored(BLUE, false)
	BlueBold   = colored(BLUE, true)
	Cyan       = colored(CYAN, false)
	CyanBold   = colored(CYAN, true)
	DarkGray   = colored(DARK_GRAY, false)
)

// colored returns a ColorFunc applying the given color.
func colored(c Color, bold bool) ColorFunc {
	return func(s any) string {
		if bold {
			return Colorize(Colorize(s, c), BOLD)
		}
		return Colorize(s, c)
	}
}
