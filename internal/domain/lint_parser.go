package domain

import (
	"strconv"
	"strings"
)

// lintLine is one `path:line:col: CODE message` record.
type lintLine struct {
	path    string
	line    string
	col     string
	code    string
	message string
}

func (l lintLine) location() string {
	return l.path + ":" + l.line + ":" + l.col
}

// parseLintLine accepts both `CODE message` and `CODE: message` after the
// column. Line and column must be numeric and a code must be present.
func parseLintLine(raw string) (lintLine, bool) {
	drive, raw := splitDrive(strings.TrimSpace(raw))
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 4 {
		return lintLine{}, false
	}
	path := strings.TrimSpace(parts[0])
	line := strings.TrimSpace(parts[1])
	col := strings.TrimSpace(parts[2])
	if path == "" || !isNumber(line) || !isNumber(col) {
		return lintLine{}, false
	}
	rest := strings.TrimSpace(parts[3])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return lintLine{}, false
	}
	code := strings.TrimSuffix(fields[0], ":")
	if code == "" {
		return lintLine{}, false
	}
	message := strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	message = strings.TrimSpace(strings.TrimPrefix(message, ":"))
	return lintLine{path: drive + path, line: line, col: col, code: code, message: message}, true
}

// splitDrive separates a Windows drive prefix such as `C:` from a path.
func splitDrive(raw string) (string, string) {
	if len(raw) < 3 || raw[1] != ':' || (raw[2] != '\\' && raw[2] != '/') {
		return "", raw
	}
	if c := raw[0] | 0x20; c < 'a' || c > 'z' {
		return "", raw
	}
	return raw[:2], raw[2:]
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// PylintParser handles pylint's parseable output. The message code becomes
// the issue type.
type PylintParser struct{}

// Parse implements OutputParser.
func (PylintParser) Parse(output, target string) []Finding {
	var findings []Finding
	for _, raw := range splitOutputLines(output) {
		l, ok := parseLintLine(raw)
		if !ok {
			findings = append(findings, genericFinding(raw, target))
			continue
		}
		findings = append(findings, Finding{
			Type:        l.code,
			Severity:    SeverityFromCode(l.code),
			Location:    l.location(),
			Description: l.message,
		})
	}
	return findings
}

// Flake8Parser handles flake8's default output. The code is kept in metadata.
type Flake8Parser struct{}

// Parse implements OutputParser.
func (Flake8Parser) Parse(output, target string) []Finding {
	var findings []Finding
	for _, raw := range splitOutputLines(output) {
		l, ok := parseLintLine(raw)
		if !ok {
			findings = append(findings, genericFinding(raw, target))
			continue
		}
		findings = append(findings, Finding{
			Type:        "flake8",
			Severity:    SeverityFromCode(l.code),
			Location:    l.location(),
			Description: l.message,
			Metadata:    map[string]any{"code": l.code},
		})
	}
	return findings
}
