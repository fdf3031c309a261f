package colors

// Color is an ANSI color code
type Color int

// ANSI codes used to colorize console output, following zerolog's console writer.
const (
	RED Color = iota + 31
	GREEN
	YELLOW
	BLUE
	_
	CYAN

	// BOLD is the ANSI code for bold text
	BOLD Color = 1
	// DARK_GRAY is the ANSI code for dark gray
	DARK_GRAY Color = 90
)

// LEFT_ARROW is the glyph prefixing console messages.
const LEFT_ARROW = "⇾"
