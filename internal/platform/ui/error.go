package ui

// FormatError renders a CLI-facing error line, sanitizing the error text so
// an error that embeds captured request data can't inject terminal escapes.
func FormatError(err error) string {
	label := Error.Render("Error:")
	if err == nil {
		return label
	}
	return label + " " + sanitizeForTerminal(err.Error())
}
