package console

import (
	"fmt"
	"io"
	"os"
)

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// ClearScreen resets the terminal when stdout is one.
func ClearScreen(w io.Writer) {
	if !isTTY() {
		return
	}
	fmt.Fprint(w, "\033c")
}

// Banner prints the startup header.
func Banner(w io.Writer, title, subtitle string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if subtitle != "" {
		fmt.Fprintln(w, subtitleStyl.Render(subtitle))
	}
	fmt.Fprintln(w)
}

// Infof prints a muted informational line.
func Infof(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// UserPromptLabel is the REPL input prefix.
func UserPromptLabel() string {
	return promptStyle.Render("User") + mutedStyle.Render(" >> ")
}

// Divider separates turns.
func Divider(w io.Writer) {
	fmt.Fprintln(w)
}
