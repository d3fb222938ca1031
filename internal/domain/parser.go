package domain

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"debugtrail/internal/debug"
)

// OutputParser turns raw tool output into findings. Implementations must not
// panic and must not drop lines they fail to understand.
type OutputParser interface {
	Parse(output, target string) []Finding
}

// ParserFunc adapts a plain function to OutputParser.
type ParserFunc func(output, target string) []Finding

// Parse implements OutputParser.
func (f ParserFunc) Parse(output, target string) []Finding {
	return f(output, target)
}

// GenericParser reports every non-empty output line as a medium issue.
type GenericParser struct{}

// Parse implements OutputParser.
func (GenericParser) Parse(output, target string) []Finding {
	var findings []Finding
	for _, line := range splitOutputLines(output) {
		findings = append(findings, genericFinding(line, target))
	}
	return findings
}

func genericFinding(line, target string) Finding {
	return Finding{
		Type:        "generic",
		Severity:    SeverityMedium,
		Location:    target,
		Description: line,
	}
}

func splitOutputLines(output string) []string {
	raw := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

const genericParserName = "generic"

// ParserRegistry selects an OutputParser by tool name.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]OutputParser
}

// NewParserRegistry returns a registry holding only the generic parser.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: map[string]OutputParser{genericParserName: GenericParser{}},
	}
}

// DefaultParsers returns a registry with the generic, pylint and flake8 parsers.
func DefaultParsers() *ParserRegistry {
	r := NewParserRegistry()
	r.Register("pylint", PylintParser{})
	r.Register("flake8", Flake8Parser{})
	return r
}

// Register adds or replaces the parser used for tool.
func (r *ParserRegistry) Register(tool string, p OutputParser) {
	key := normalizeTool(tool)
	if key == "" || p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[key] = p
}

// Lookup returns the parser for tool, falling back to the generic parser.
// Tool may be a bare name or a path to the executable.
func (r *ParserRegistry) Lookup(tool string) OutputParser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.parsers[normalizeTool(tool)]; ok {
		return p
	}
	return r.parsers[genericParserName]
}

// Names lists registered tool names in sorted order.
func (r *ParserRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeTool(tool string) string {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return ""
	}
	return strings.ToLower(filepath.Base(tool))
}

// parseSafely runs p and falls back to the generic parser if p panics.
func parseSafely(p OutputParser, output, target string) (findings []Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			debug.Warnf("parser %T panicked, using generic parser: %v", p, rec)
			findings = GenericParser{}.Parse(output, target)
		}
	}()
	return p.Parse(output, target)
}

