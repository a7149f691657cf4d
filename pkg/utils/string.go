// Package utils holds small helpers shared by the CLI commands.
package utils

// Truncate shortens s to maxLen runes and appends an ellipsis when it was cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
