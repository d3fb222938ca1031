package report

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"debugtrail/internal/timeline"
)

// DetectStyle picks a glamour style for stdout: notty when colour is not
// available, otherwise dark or light to match the terminal background.
func DetectStyle() string {
	out := termenv.NewOutput(os.Stdout)
	if out.Profile == termenv.Ascii {
		return "notty"
	}
	if out.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// Terminal renders doc for a terminal of the given width. Style is a glamour
// standard style name, "auto" to detect one, or "plain" for wrapped Markdown.
func Terminal(doc timeline.Document, style string, width int) string {
	return buildMarkdownRenderer(style, width)(Markdown(doc))
}

func buildMarkdownRenderer(style string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style = strings.ToLower(strings.TrimSpace(style))
	switch style {
	case "plain":
		return fallback
	case "", "auto":
		style = DetectStyle()
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
