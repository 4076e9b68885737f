package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stembed/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelStringRoundTrip(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("LevelString(%v) = %q did not parse back", level, LevelString(level))
		}
	}
}

func TestFromConfig(t *testing.T) {
	c := config.DefaultConfig().Logging
	c.Level = "debug"
	c.Format = "json"
	c.Output = "file"
	c.MaxSizeMB = 7

	cfg, err := FromConfig(c)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if cfg.Level != LevelDebug || cfg.Format != FormatJSON {
		t.Errorf("level/format = %v/%v", cfg.Level, cfg.Format)
	}
	if cfg.Output != "file" || cfg.MaxSize != 7 || cfg.FilePath != c.FilePath {
		t.Errorf("unexpected config: %+v", cfg)
	}

	c.Format = "xml"
	if _, err := FromConfig(c); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: LevelInfo, Format: FormatJSON, Component: "engine", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithComponent("bindict").Info("opened", "entries", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if record["msg"] != "opened" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["entries"] != float64(3) {
		t.Errorf("entries = %v", record["entries"])
	}
	if record["component"] != "bindict" {
		t.Errorf("component = %v", record["component"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}

	child := logger.WithComponent("translator")
	logger.SetLevel(LevelDebug)
	child.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("SetLevel did not reach derived logger: %q", buf.String())
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key    string
		redact bool
	}{
		{"password", true},
		{"dbPassword", true},
		{"SECRET", true},
		{"token", true},
		{"outline", false},
		{"output", false},
		{"stroke", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if got := shouldRedact(test.key); got != test.redact {
				t.Errorf("shouldRedact(%q) = %v, want %v", test.key, got, test.redact)
			}
		})
	}
}

func TestRedactionInOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("auth", "token", "hunter2")

	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("token leaked: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("missing redaction marker: %s", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stembed.log")
	logger, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("to file")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content: %q", data)
	}
}

func TestFileRotatorRotatesDailyAndCompresses(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		FilePath:   filepath.Join(dir, "app.log"),
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("NewFileRotator: %v", err)
	}
	if _, err := r.Write([]byte("day one\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	later := time.Now().Add(48 * time.Hour)
	r.now = func() time.Time { return later }
	if _, err := r.Write([]byte("day three\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	current, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(current) != "day three\n" {
		t.Errorf("current log = %q", current)
	}

	compressed, err := filepath.Glob(filepath.Join(dir, "app-*.log"+CompressedExt))
	if err != nil || len(compressed) != 1 {
		t.Fatalf("expected one compressed file, got %v (%v)", compressed, err)
	}
	data, err := Decompress(compressed[0])
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(data) != "day one\n" {
		t.Errorf("rotated content = %q", data)
	}

	files, err := r.LogFiles()
	if err != nil {
		t.Fatalf("LogFiles: %v", err)
	}
	if len(files) != 2 || files[0] != cfg.FilePath {
		t.Errorf("LogFiles = %v", files)
	}
}

func TestFileRotatorRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "app.log"), MaxSize: 1, MaxBackups: 1}

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("NewFileRotator: %v", err)
	}
	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 3; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rotated, _ := filepath.Glob(filepath.Join(dir, "app-*.log"))
	if len(rotated) != 1 {
		t.Errorf("MaxBackups=1 kept %d rotated files", len(rotated))
	}
	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("current size = %d", info.Size())
	}
}

func TestCrashHandler(t *testing.T) {
	dir := t.TempDir()
	var got CrashReport
	h := NewCrashHandler(&CrashHandlerConfig{
		CrashDir:  dir,
		Version:   "test",
		Component: "translate",
		OnCrash:   func(r CrashReport) { got = r },
	})
	var stderr bytes.Buffer
	h.stderr = &stderr

	panicked := h.Recover(map[string]any{"stroke": "KAT"}, func() {
		panic("boom")
	})
	if !panicked {
		t.Fatal("Recover did not report the panic")
	}
	if got.PanicValue != "boom" || got.Context["stroke"] != "KAT" {
		t.Errorf("OnCrash report = %+v", got)
	}
	if !strings.Contains(stderr.String(), "Panic: boom") {
		t.Errorf("stderr = %q", stderr.String())
	}

	reports, err := h.CrashReports()
	if err != nil {
		t.Fatalf("CrashReports: %v", err)
	}
	if len(reports) != 1 || reports[0].Version != "test" || reports[0].StackTrace == "" {
		t.Errorf("reports = %+v", reports)
	}

	if h.Recover(nil, func() {}) {
		t.Error("Recover reported a panic for a clean function")
	}
}
