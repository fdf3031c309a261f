package colors

// Colors start enabled. Windows consoles additionally need virtual terminal processing turned on.
func init() {
	EnableColor()
}
