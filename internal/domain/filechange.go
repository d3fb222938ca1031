package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"debugtrail/internal/debug"
)

const (
	metaCreated = "created"
	metaDeleted = "deleted"
)

// FileChange is the before and after content of one file touched by a fix.
type FileChange struct {
	FilePath    string         `json:"file_path"`
	BeforeState string         `json:"before_state"`
	AfterState  string         `json:"after_state"`
	Diff        string         `json:"diff"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChangeSummary is the line-level shape of a FileChange.
type ChangeSummary struct {
	FilePath         string  `json:"file_path" yaml:"file_path"`
	LinesBefore      int     `json:"lines_before" yaml:"lines_before"`
	LinesAfter       int     `json:"lines_after" yaml:"lines_after"`
	LinesAdded       int     `json:"lines_added" yaml:"lines_added"`
	LinesRemoved     int     `json:"lines_removed" yaml:"lines_removed"`
	LinesModified    int     `json:"lines_modified" yaml:"lines_modified"`
	ChangePercentage float64 `json:"change_percentage" yaml:"change_percentage"`
}

// NewFileChange records a change. When diff is empty and the states differ
// a line diff is computed.
func NewFileChange(path, before, after, diff string) *FileChange {
	if diff == "" && before != after {
		diff = DiffStates(path, before, after)
	}
	return &FileChange{
		FilePath:    path,
		BeforeState: before,
		AfterState:  after,
		Diff:        diff,
		Metadata:    map[string]any{},
	}
}

// DiffStates renders a unified-style line diff between two file states.
func DiffStates(path, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
	fmt.Fprintf(&sb, "@@ -1,%d +1,%d @@\n", countLines(before), countLines(after))
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitKeepingContent(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func splitKeepingContent(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// countLines counts lines the way an editor does: a trailing newline does not
// open a new line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// BeforeHash returns the hash of the captured before state.
func (c *FileChange) BeforeHash() string {
	return ContentHash(c.BeforeState)
}

// AfterHash returns the hash of the captured after state.
func (c *FileChange) AfterHash() string {
	return ContentHash(c.AfterState)
}

// HasChanges reports whether the two states differ byte for byte.
func (c *FileChange) HasChanges() bool {
	return c.BeforeState != c.AfterState
}

// SaveStates writes the before state, after state and diff under dir and
// returns the three paths in that order.
func (c *FileChange) SaveStates(dir string) (string, string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", "", fmt.Errorf("create snapshot dir: %w", err)
	}
	base := filepath.Base(c.FilePath)
	before8 := c.BeforeHash()[:8]
	after8 := c.AfterHash()[:8]

	beforePath := filepath.Join(dir, fmt.Sprintf("%s.before.%s", base, before8))
	afterPath := filepath.Join(dir, fmt.Sprintf("%s.after.%s", base, after8))
	diffPath := filepath.Join(dir, fmt.Sprintf("%s.%s_%s.diff", base, before8, after8))

	writes := []struct {
		path    string
		content string
	}{
		{beforePath, c.BeforeState},
		{afterPath, c.AfterState},
		{diffPath, c.Diff},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, []byte(w.content), 0o644); err != nil {
			return "", "", "", fmt.Errorf("write %s: %w", w.path, err)
		}
	}
	return beforePath, afterPath, diffPath, nil
}

// SummarizeChanges counts diff lines and the relative change in file length.
func (c *FileChange) SummarizeChanges() ChangeSummary {
	added, removed := 0, 0
	for _, line := range diffBodyLines(c.Diff) {
		switch line[0] {
		case '+':
			added++
		case '-':
			removed++
		}
	}
	before := countLines(c.BeforeState)
	after := countLines(c.AfterState)

	var pct float64
	switch {
	case before > 0:
		pct = math.Abs(float64(after-before)) / float64(before) * 100
	case after != before:
		pct = 100
	}
	return ChangeSummary{
		FilePath:         c.FilePath,
		LinesBefore:      before,
		LinesAfter:       after,
		LinesAdded:       added,
		LinesRemoved:     removed,
		LinesModified:    min(added, removed),
		ChangePercentage: math.Round(pct*100) / 100,
	}
}

// diffBodyLines returns the +/- lines of a diff without the file headers.
func diffBodyLines(diff string) []string {
	var out []string
	for _, line := range strings.Split(diff, "\n") {
		if line == "" || strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if line[0] == '+' || line[0] == '-' {
			out = append(out, line)
		}
	}
	return out
}

var functionDefPattern = regexp.MustCompile(`\b(?:def|func|function)\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*\(`)

// ChangedFunctions lists function names defined on added or removed diff
// lines, in first-seen order. This is a textual heuristic, not a parse.
func (c *FileChange) ChangedFunctions() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, line := range diffBodyLines(c.Diff) {
		for _, m := range functionDefPattern.FindAllStringSubmatch(line[1:], -1) {
			name := m[1]
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Rollback writes the before state back to FilePath, or removes the file when
// the fix created it. Failures are logged and reported as false.
func (c *FileChange) Rollback() bool {
	if created, _ := c.Metadata[metaCreated].(bool); created {
		if err := os.Remove(c.FilePath); err != nil && !os.IsNotExist(err) {
			debug.Warnf("rollback of %s failed: %v", c.FilePath, err)
			return false
		}
		return true
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(c.FilePath); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(c.FilePath, []byte(c.BeforeState), mode); err != nil {
		debug.Warnf("rollback of %s failed: %v", c.FilePath, err)
		return false
	}
	debug.Logf("rolled back %s", c.FilePath)
	return true
}
