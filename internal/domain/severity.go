package domain

import "strings"

// Severity ranks an Issue. Stored as a string so that values written by other
// tools survive a round trip even when they are not one of the known levels.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists the known levels from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity matches raw against the known levels, ignoring case and
// surrounding whitespace.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return s, true
	}
	return s, false
}

// SeverityFromCode maps a lint message code to a severity by its prefix:
// E and F are high, W and C are low, anything else is medium.
func SeverityFromCode(code string) Severity {
	code = strings.TrimSpace(code)
	if code == "" {
		return SeverityMedium
	}
	switch strings.ToUpper(code[:1]) {
	case "E", "F":
		return SeverityHigh
	case "W", "C":
		return SeverityLow
	}
	return SeverityMedium
}

// NewSeverityCounts returns a map with every known level set to zero.
func NewSeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	return counts
}
