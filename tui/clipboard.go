package tui

import (
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Clipboard copies text through the terminal with an OSC 52 escape
// sequence, which also works over SSH.
type Clipboard struct {
	Out io.Writer
	// Getenv defaults to os.Getenv; it selects tmux or screen passthrough.
	Getenv func(string) string
}

// WriteText writes the escape sequence for text to Out.
func (c Clipboard) WriteText(text string) error {
	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	seq := osc52.New(text)
	switch {
	case getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(out)
	return err
}
