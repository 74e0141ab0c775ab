package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the easyyaml banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ___  __ _ ___ _   _ _   _  __ _ _ __ ___ | |", "#818cf8"},
		{"  / _ \\/ _` / __| | | | | | |/ _` | '_ ` _ \\| |", "#a78bfa"},
		{" |  __/ (_| \\__ \\ |_| | |_| | (_| | | | | | | |", "#c084fc"},
		{"  \\___|\\__,_|___/\\__, |\\__, |\\__,_|_| |_| |_|_|", "#e879f9"},
		{"                 |___/ |___/", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
