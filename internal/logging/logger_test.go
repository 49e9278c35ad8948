package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	opts = Options{}
}

func TestCategoriesCreateFiles(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Options{DebugMode: true, Level: "debug", Dir: tempDir}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{CategoryServer, CategoryIngest, CategoryReport, CategoryLLM, CategoryProxy, CategoryStore}
	for _, cat := range categories {
		Get(cat).Info("test message for %s", cat)
	}
	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read log dir: %v", err)
	}

	found := make(map[string]bool)
	for _, e := range entries {
		for _, cat := range categories {
			if strings.HasSuffix(e.Name(), string(cat)+".log") {
				found[string(cat)] = true
			}
		}
	}
	for _, cat := range categories {
		if !found[string(cat)] {
			t.Errorf("No log file created for category %s", cat)
		}
	}
}

func TestDisabledModeIsNoOp(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Options{DebugMode: false, Level: "info", Dir: tempDir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Server("should not be written")
	Report("nor this")
	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read log dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no log files in disabled mode, found %d", len(entries))
	}
}

func TestLevelFiltering(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Options{DebugMode: true, Level: "warn", Dir: tempDir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	l := Get(CategoryServer)
	l.Debug("debug suppressed")
	l.Info("info suppressed")
	l.Warn("warn kept")
	l.Error("error kept")
	CloseAll()

	data := readCategoryFile(t, tempDir, CategoryServer)
	if strings.Contains(data, "suppressed") {
		t.Errorf("Lines below warn level were written: %s", data)
	}
	if !strings.Contains(data, "warn kept") || !strings.Contains(data, "error kept") {
		t.Errorf("Expected warn and error lines, got: %s", data)
	}
}

func TestJSONFormat(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Options{DebugMode: true, Level: "info", JSONFormat: true, Dir: tempDir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Get(CategoryLLM).Info("structured entry")
	CloseAll()

	data := readCategoryFile(t, tempDir, CategoryLLM)
	if !strings.Contains(data, `"cat":"llm"`) || !strings.Contains(data, `"msg":"structured entry"`) {
		t.Errorf("Expected JSON entry, got: %s", data)
	}
}

func TestRequestLogger(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	t.Cleanup(resetState)

	if err := Initialize(Options{DebugMode: true, Level: "info", Dir: tempDir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	rl := WithRequestID(CategoryProxy, "abc123")
	rl.Info("forwarding %s", "/report/direct")
	CloseAll()

	data := readCategoryFile(t, tempDir, CategoryProxy)
	if !strings.Contains(data, "[req:abc123]") {
		t.Errorf("Expected request id in log line, got: %s", data)
	}
}

func readCategoryFile(t *testing.T, dir string, cat Category) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), string(cat)+".log") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("No log file for category %s", cat)
	return ""
}
