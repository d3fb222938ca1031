package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"debugtrail/internal/timeline"
)

const pageStyle = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#1f2328;line-height:1.5}
table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #d0d7de;padding:.3rem .7rem}th{background:#f6f8fa}
code{background:#f6f8fa;padding:.1rem .3rem;border-radius:4px}h3{border-bottom:1px solid #d0d7de;padding-bottom:.2rem}`

var markdownHTML = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders doc as a standalone HTML page.
func HTML(doc timeline.Document) (string, error) {
	var body bytes.Buffer
	if err := markdownHTML.Convert([]byte(Markdown(doc)), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Debug Session: %s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(inline(doc.Session.Name)), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}
