package logger

import "github.com/mattn/go-isatty"

// isTerminal reports whether fd refers to a terminal (including Cygwin/MSYS ptys).
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
