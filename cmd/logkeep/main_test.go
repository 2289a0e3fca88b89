package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI runs the CLI against an isolated log directory.
func runCLI(t *testing.T, logDir string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("LOGKEEP_LOG_DIR", logDir)
	t.Setenv("LOGKEEP_LINES", "")
	cfg := filepath.Join(t.TempDir(), "config.toml")

	var out, errOut bytes.Buffer
	code = run(append([]string{"--config", cfg}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func seedFamily(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"app.log.1": "a\nb\nc\n",
		"app.log.2": "d\ne\nf\n",
		"app.log.3": "g\nh\ni\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"--version"}, &out, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(out.String(), "logkeep dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestNoCommand(t *testing.T) {
	var errOut bytes.Buffer
	if code := run(nil, &bytes.Buffer{}, &errOut); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Errorf("stderr = %q, want usage", errOut.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), "rotate", "app.log")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, `unknown command "rotate"`) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	code, stdout, stderr := runCLI(t, dir, "path", filepath.Join("emulator", "app.log"))
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	want := filepath.Join(dir, "emulator", "app.log")
	if strings.TrimSpace(stdout) != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "emulator")); err != nil {
		t.Errorf("log directory not created: %v", err)
	}
}

func TestPathWrongArgCount(t *testing.T) {
	code, _, _ := runCLI(t, t.TempDir(), "path", "a.log", "b.log")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	os.WriteFile(path, []byte("one\ntwo\n"), 0o644)

	code, _, stderr := runCLI(t, dir, "clear", "app.log")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

func TestClearMissing(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), "clear", "missing.log")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "clearing") {
		t.Errorf("stderr = %q, want clearing context", stderr)
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"last two", []string{"tail", "-n", "2", "app.log"}, "h\ni\n"},
		{"more than available", []string{"tail", "-n", "10", "app.log"}, "g\nh\ni\n"},
		{"zero", []string{"tail", "-n", "0", "app.log"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			seedFamily(t, dir)
			code, stdout, stderr := runCLI(t, dir, tt.args...)
			if code != 0 {
				t.Fatalf("exit code = %d, stderr = %s", code, stderr)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestTailDefaultLines(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("line\n")
	}
	os.WriteFile(filepath.Join(dir, "app.log"), []byte(sb.String()), 0o644)

	code, stdout, _ := runCLI(t, dir, "tail", "app.log")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got := strings.Count(stdout, "\n"); got != 20 {
		t.Errorf("printed %d lines, want 20", got)
	}
}

func TestTailNoLogYet(t *testing.T) {
	code, stdout, stderr := runCLI(t, t.TempDir(), "tail", "app.log")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
}

func TestTailBadFlag(t *testing.T) {
	code, _, _ := runCLI(t, t.TempDir(), "tail", "-n", "many", "app.log")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	seedFamily(t, dir)

	code, stdout, stderr := runCLI(t, dir, "ls", "app.log")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), stdout)
	}
	if !strings.Contains(lines[2], "app.log.3") || !strings.Contains(lines[2], "(newest)") {
		t.Errorf("last line = %q, want newest app.log.3", lines[2])
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(cfg, []byte("[logs\n"), 0o644)

	var errOut bytes.Buffer
	if code := run([]string{"--config", cfg, "path", "app.log"}, &bytes.Buffer{}, &errOut); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "parsing config") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestTailWriteError(t *testing.T) {
	dir := t.TempDir()
	seedFamily(t, dir)
	t.Setenv("LOGKEEP_LOG_DIR", dir)
	t.Setenv("LOGKEEP_LINES", "")
	cfg := filepath.Join(t.TempDir(), "config.toml")

	var errOut bytes.Buffer
	code := run([]string{"--config", cfg, "tail", "app.log"}, failingWriter{}, &errOut)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "broken pipe") {
		t.Errorf("stderr = %q, want the write error", errOut.String())
	}
}

func TestInit(t *testing.T) {
	t.Setenv("LOGKEEP_LOG_DIR", "")
	t.Setenv("LOGKEEP_LINES", "")
	cfg := filepath.Join(t.TempDir(), "nested", "config.toml")

	var out, errOut bytes.Buffer
	if code := run([]string{"--config", cfg, "init"}, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut.String())
	}
	if strings.TrimSpace(out.String()) != cfg {
		t.Errorf("stdout = %q, want %q", out.String(), cfg)
	}
	data, err := os.ReadFile(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "lines = 20") {
		t.Errorf("config = %q, want default line count", data)
	}

	// The written file loads cleanly.
	if code := run([]string{"--config", cfg, "path", "app.log"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 0 {
		t.Errorf("path with generated config exit code = %d", code)
	}
}

func TestInitExisting(t *testing.T) {
	t.Setenv("LOGKEEP_LOG_DIR", "")
	t.Setenv("LOGKEEP_LINES", "")
	cfg := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(cfg, []byte("[logs]\nlines = 5\n"), 0o644)

	if code := run([]string{"--config", cfg, "init"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for existing config", code)
	}
	if data, _ := os.ReadFile(cfg); !strings.Contains(string(data), "lines = 5") {
		t.Errorf("existing config was overwritten: %q", data)
	}

	if code := run([]string{"--config", cfg, "init", "-force"}, &bytes.Buffer{}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit code = %d, want 0 with -force", code)
	}
	if data, _ := os.ReadFile(cfg); !strings.Contains(string(data), "lines = 20") {
		t.Errorf("config = %q, want defaults after -force", data)
	}
}
