package report

import (
	"fmt"
	"io"
	"strings"

	appErrors "debugtrail/internal/errors"
	"debugtrail/internal/timeline"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatTerminal Format = "terminal"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatMarkdown, FormatHTML, FormatTerminal}

// ParseFormat accepts a format name; "md" is an alias for markdown.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	if f == "md" {
		return FormatMarkdown, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("unknown output format %q", raw), nil)
}

// Options tune terminal rendering.
type Options struct {
	Style string
	Width int
}

// Render writes doc to w in the given format.
func Render(w io.Writer, doc timeline.Document, format Format, opts Options) error {
	var out string
	switch format {
	case FormatJSON:
		return timeline.WriteJSON(w, doc)
	case FormatYAML:
		return timeline.WriteYAML(w, doc)
	case FormatMarkdown:
		out = Markdown(doc)
	case FormatHTML:
		page, err := HTML(doc)
		if err != nil {
			return err
		}
		out = page
	case FormatTerminal:
		out = Terminal(doc, opts.Style, opts.Width) + "\n"
	default:
		return appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("unknown output format %q", format), nil)
	}
	_, err := io.WriteString(w, out)
	return err
}
