package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"debugtrail/internal/command"
	"debugtrail/internal/config"
	appErrors "debugtrail/internal/errors"
	"debugtrail/internal/storage"
)

type cliHarness struct {
	t         *testing.T
	storeDir  string
	runner    *command.MockRunner
	tty       bool
	confirmed bool
	prompts   []string
	copied    []string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	t.Cleanup(config.ResetForTesting(t))
	return &cliHarness{
		t:        t,
		storeDir: filepath.Join(t.TempDir(), "sessions"),
		runner:   command.NewMockRunner(command.Result{}, nil),
	}
}

// run executes one CLI invocation against a fresh app sharing the same store.
func (h *cliHarness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	a := &app{
		out:       &out,
		errOut:    &errOut,
		runner:    h.runner,
		openStore: newApp().openStore,
		confirm: func(title string) (bool, error) {
			h.prompts = append(h.prompts, title)
			return h.confirmed, nil
		},
		copyText: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		isTTY: func() bool { return h.tty },
	}
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--storage-path", h.storeDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v (stderr %q)", args, err, errOut)
	}
	return out
}

func (h *cliHarness) createSession(name string) string {
	h.t.Helper()
	out := h.mustRun("session", "create", name, "--project", "demo")
	id := strings.TrimSpace(strings.TrimPrefix(out, "Created session "))
	if id == "" {
		h.t.Fatalf("no session id in %q", out)
	}
	return id
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.runner.RunFn = func(_ context.Context, argv []string) (command.Result, error) {
		return command.Result{Command: argv, Stdout: "app.py:3:0: E0602: Undefined variable 'x'\n"}, nil
	}

	id := h.createSession("login bug")

	if out := h.mustRun("session", "list"); !strings.Contains(out, "login bug") || !strings.Contains(out, id[:8]) {
		t.Fatalf("list missing session:\n%s", out)
	}

	out := h.mustRun("diag", "run", id[:8], "--target", "app.py", "--", "pylint", "app.py")
	if !strings.Contains(out, "1 high") {
		t.Fatalf("expected severity summary, got:\n%s", out)
	}
	if h.runner.RunCallCount != 1 || h.runner.RunCallArgs[0][0] != "pylint" {
		t.Fatalf("unexpected runner calls: %v", h.runner.RunCallArgs)
	}

	out = h.mustRun("diag", "issues", id, "--unresolved")
	if !strings.Contains(out, "issue_0_app.py") || !strings.Contains(out, "Undefined variable") {
		t.Fatalf("issues output:\n%s", out)
	}

	h.mustRun("session", "complete", id, "--summary", "typo in handler")

	if out := h.mustRun("session", "list"); !strings.Contains(out, "No sessions.") {
		t.Fatalf("completed session should not be listed as active:\n%s", out)
	}
	if out := h.mustRun("session", "list", "--status", "completed"); !strings.Contains(out, "login bug") {
		t.Fatalf("status filter missing session:\n%s", out)
	}

	out = h.mustRun("session", "show", id)
	for _, want := range []string{"login bug", "completed", "typo in handler", "Diagnostics (1)", "Fixes (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestTimelineJSON(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("timeline")
	h.mustRun("diag", "run", id, "--tool", "manual", "--target", "svc")
	h.mustRun("session", "abandon", id, "--reason", "could not reproduce")

	out := h.mustRun("timeline", id, "--format", "json")
	var doc struct {
		Session struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"session"`
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("timeline is not JSON: %v\n%s", err, out)
	}
	if doc.Session.ID != id || doc.Session.Status != "abandoned" {
		t.Fatalf("unexpected session info: %+v", doc.Session)
	}
	var types []string
	for _, e := range doc.Events {
		types = append(types, e.Type)
	}
	if got := strings.Join(types, ","); got != "session_start,diagnostic,session_abandoned" {
		t.Fatalf("event types = %s", got)
	}
}

func TestTimelineOutputAndCopy(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("export")
	path := filepath.Join(t.TempDir(), "report.md")

	stdout, stderr, err := h.run("timeline", id, "--output", path, "--copy")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if stdout != "" {
		t.Fatalf("expected nothing on stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "Copied markdown timeline") || !strings.Contains(stderr, "Wrote "+path) {
		t.Fatalf("stderr = %q", stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(h.copied) != 1 || h.copied[0] != string(data) {
		t.Fatalf("clipboard and file differ")
	}
	if !strings.Contains(string(data), "export") {
		t.Fatalf("report missing session name:\n%s", data)
	}

	if _, _, err := h.run("timeline", id, "--format", "pdf"); !appErrors.IsCode(err, appErrors.CodeConfigurationError) {
		t.Fatalf("expected configuration error for unknown format, got %v", err)
	}
}

func TestFixApplyAndRollback(t *testing.T) {
	h := newHarness(t)
	target := filepath.Join(t.TempDir(), "app.py")
	if err := os.WriteFile(target, []byte("def handler():\n    return x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.runner.RunFn = func(_ context.Context, argv []string) (command.Result, error) {
		if argv[0] == "pylint" {
			return command.Result{Command: argv, Stdout: "app.py:2:11: E0602: Undefined variable 'x'\n"}, nil
		}
		if err := os.WriteFile(target, []byte("def handler(user):\n    return 1\n"), 0o644); err != nil {
			return command.Result{}, err
		}
		return command.Result{Command: argv}, nil
	}

	id := h.createSession("fix it")
	h.mustRun("diag", "run", id, "--target", "app.py", "--", "pylint", "app.py")

	out := h.mustRun("fix", "apply", id, "--target", "app.py", "--file", target,
		"--resolves", "issue_0_app.py", "--", "sed", "-i", "s/x/1/", target)
	if !strings.Contains(out, "succeeded: 1 files changed, 1 issues resolved") {
		t.Fatalf("apply output:\n%s", out)
	}
	if !strings.Contains(out, "[handler]") {
		t.Fatalf("expected changed function in output:\n%s", out)
	}

	if out := h.mustRun("diag", "issues", id, "--unresolved"); !strings.Contains(out, "No issues.") {
		t.Fatalf("issue should be resolved:\n%s", out)
	}

	fixID := firstFixID(t, h, id)
	if out := h.mustRun("fix", "diff", id, fixID[:8]); !strings.Contains(out, "-    return x") || !strings.Contains(out, "+    return 1") {
		t.Fatalf("diff output:\n%s", out)
	}

	if out := h.mustRun("fix", "rollback", id, fixID); !strings.Contains(out, "Restored 1 of 1 files") {
		t.Fatalf("rollback output:\n%s", out)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "def handler():\n    return x\n" {
		t.Fatalf("file not restored: %q", data)
	}
}

func firstFixID(t *testing.T, h *cliHarness, sessionID string) string {
	t.Helper()
	out := h.mustRun("timeline", sessionID, "--format", "json")
	var doc struct {
		Events []struct {
			Type    string         `json:"type"`
			Details map[string]any `json:"details"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	for _, e := range doc.Events {
		if e.Type == "fix" {
			return e.Details["fix_id"].(string)
		}
	}
	t.Fatal("no fix event")
	return ""
}

func TestFixResolveUnknownIssue(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("resolve")
	h.mustRun("fix", "apply", id, "--script", "manual")
	fixID := firstFixID(t, h, id)

	_, _, err := h.run("fix", "resolve", id, fixID, "issue_9_nowhere")
	if !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManualIssues(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("manual")
	out := h.mustRun("diag", "run", id, "--tool", "gdb", "--target", "core")
	runID := strings.Fields(strings.TrimPrefix(out, "Diagnostic "))[0]
	runID = strings.TrimSuffix(runID, ":")

	out = h.mustRun("diag", "add-issue", id, runID, "--severity", "critical", "--location", "main.c:10", "--description", "null deref")
	if !strings.Contains(out, "issue_0_core") {
		t.Fatalf("add-issue output: %s", out)
	}
	h.mustRun("diag", "finish", id, runID)

	_, _, err := h.run("diag", "add-issue", id, runID, "--description", "late")
	if !appErrors.IsCode(err, appErrors.CodeRunFinished) {
		t.Fatalf("expected run finished error, got %v", err)
	}
	if _, _, err := h.run("diag", "add-issue", id, runID, "--severity", "urgent"); err == nil {
		t.Fatal("expected unknown severity error")
	}
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("throwaway")

	if _, _, err := h.run("session", "delete", id); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected refusal without a terminal, got %v", err)
	}

	h.tty = true
	if out := h.mustRun("session", "delete", id); !strings.Contains(out, "Cancelled.") {
		t.Fatalf("expected cancel, got %q", out)
	}
	if len(h.prompts) != 1 || !strings.Contains(h.prompts[0], "throwaway") {
		t.Fatalf("prompts = %v", h.prompts)
	}

	h.confirmed = true
	if out := h.mustRun("session", "delete", id); !strings.Contains(out, "Deleted session "+id) {
		t.Fatalf("delete output %q", out)
	}
	if _, _, err := h.run("session", "show", id); !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStrictTransitions(t *testing.T) {
	h := newHarness(t)
	id := h.createSession("strict")
	h.mustRun("session", "complete", id)

	if _, _, err := h.run("--strict", "session", "abandon", id); !appErrors.IsCode(err, appErrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("session", "show", "nope")
	if !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteBackendFlag(t *testing.T) {
	h := newHarness(t)
	h.storeDir = filepath.Join(t.TempDir(), "sessions.db")

	out := h.mustRun("--storage-backend", "sqlite", "session", "create", "on sqlite", "--project", "demo")
	id := strings.TrimSpace(strings.TrimPrefix(out, "Created session "))
	if out := h.mustRun("--storage-backend", "sqlite", "session", "list"); !strings.Contains(out, "on sqlite") {
		t.Fatalf("list output:\n%s", out)
	}
	if out := h.mustRun("--storage-backend", "sqlite", "session", "show", id); !strings.Contains(out, "demo") {
		t.Fatalf("show output:\n%s", out)
	}
	if _, err := os.Stat(h.storeDir); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues([]string{"a=1", " b = two ", "c="})
	if err != nil {
		t.Fatalf("parseKeyValues: %v", err)
	}
	if got["a"] != "1" || got["b"] != "two" || got["c"] != "" {
		t.Fatalf("got %v", got)
	}
	if _, err := parseKeyValues([]string{"novalue"}); err == nil {
		t.Fatal("expected error for missing '='")
	}
	if m, err := parseKeyValues(nil); err != nil || m != nil {
		t.Fatalf("nil input: %v %v", m, err)
	}
}

func TestResolvePrefix(t *testing.T) {
	ids := []string{"abc123", "abd456", "abc"}
	tests := []struct {
		want    string
		expect  string
		wantErr bool
	}{
		{want: "abc", expect: "abc"},
		{want: "abd", expect: "abd456"},
		{want: "ab", wantErr: true},
		{want: "zzz", expect: ""},
	}
	for _, tt := range tests {
		got, err := resolvePrefix("fix", tt.want, ids)
		if (err != nil) != tt.wantErr {
			t.Fatalf("resolvePrefix(%q) err = %v", tt.want, err)
		}
		if got != tt.expect {
			t.Fatalf("resolvePrefix(%q) = %q, want %q", tt.want, got, tt.expect)
		}
	}
}

func TestOpenStoreFailure(t *testing.T) {
	h := newHarness(t)
	var errOut bytes.Buffer
	a := &app{
		out:    &bytes.Buffer{},
		errOut: &errOut,
		runner: h.runner,
		openStore: func(context.Context, config.Storage) (storage.Store, error) {
			return nil, errors.New("disk on fire")
		},
		isTTY: func() bool { return false },
	}
	root := newRootCmd(a)
	root.SetArgs([]string{"session", "list"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected storage error, got %v", err)
	}
}
