package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useTempLogPath(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origGetLogPath := getLogPath
	getLogPath = func() (string, error) {
		return filepath.Join(tmpDir, LogDirName, LogFileName), nil
	}
	t.Cleanup(func() {
		getLogPath = origGetLogPath
		Close()
		resetForTest()
	})
	return filepath.Join(tmpDir, LogDirName, LogFileName)
}

func TestInit_Disabled(t *testing.T) {
	resetForTest()

	if err := Init(false); err != nil {
		t.Fatalf("Init(false) failed: %v", err)
	}
	if Enabled() {
		t.Error("Enabled() should return false when initialized with false")
	}

	Log("test message")
	Logf("test %s", "formatted")
	Warnf("rollback of %s failed", "x.py")
}

func TestInit_Enabled(t *testing.T) {
	resetForTest()
	logPath := useTempLogPath(t)

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	if !Enabled() {
		t.Error("Enabled() should return true when initialized with true")
	}

	Log("test message")
	Logf("test %s %d", "formatted", 42)
	Warnf("rollback %s", "failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	contentStr := string(content)
	for _, want := range []string{"debug log started", "test message", "test formatted 42", "WARN rollback failed"} {
		if !strings.Contains(contentStr, want) {
			t.Errorf("log file should contain %q, got:\n%s", want, contentStr)
		}
	}
}

func TestInit_TruncatesExistingLog(t *testing.T) {
	resetForTest()
	logPath := useTempLogPath(t)

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		t.Fatalf("Failed to create log directory: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("old log content that should be truncated\n"), 0600); err != nil {
		t.Fatalf("Failed to write pre-existing log: %v", err)
	}

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(content), "old log content") {
		t.Error("Log file should have been truncated, but old content still present")
	}
}

func TestInitWriter(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	var buf bytes.Buffer
	InitWriter(&buf)
	Logf("fix %s restored", "fix-1")
	if got := buf.String(); !strings.Contains(got, "fix fix-1 restored") {
		t.Fatalf("expected message in writer, got %q", got)
	}

	InitWriter(nil)
	if Enabled() {
		t.Fatal("InitWriter(nil) should disable logging")
	}
}

func TestClose_Idempotent(t *testing.T) {
	resetForTest()
	useTempLogPath(t)

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Close()
	Close()
}

func TestGetLogPath(t *testing.T) {
	path, err := GetLogPath()
	if err != nil {
		t.Fatalf("GetLogPath() failed: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(LogDirName, LogFileName)) {
		t.Errorf("GetLogPath() = %q, want suffix %q", path, filepath.Join(LogDirName, LogFileName))
	}
}

// resetForTest resets the package state for testing.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	enabled = false
	logger = nil
}
