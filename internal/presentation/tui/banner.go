package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ____            _", "#38bdf8"},
	{" |  _ \\ __ _ _ __| | ___ _   _", "#22d3ee"},
	{" | |_) / _` | '__| |/ _ \\ | | |", "#2dd4bf"},
	{" |  __/ (_| | |  | |  __/ |_| |", "#34d399"},
	{" |_|   \\__,_|_|  |_|\\___|\\__, |", "#4ade80"},
	{"                         |___/", "#a3e635"},
}

// PrintBanner writes the Parley banner, coloured when the terminal allows it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
