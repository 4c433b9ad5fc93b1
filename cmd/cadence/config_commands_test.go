package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommandForTest(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")

	output, err := runCommandForTest(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to mention %s, got %q", target, output)
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "[engine]") {
		t.Fatal("sample config missing engine section")
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(target, []byte("# existing"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if _, err := runCommandForTest(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}

	if _, err := runCommandForTest(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(raw) == "# existing" {
		t.Fatal("expected sample to replace existing file")
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	output, err := runCommandForTest(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(output, path) {
		t.Fatalf("expected output to mention config path, got %q", output)
	}
	if !strings.Contains(output, "Configuration valid") {
		t.Fatalf("expected validity confirmation, got %q", output)
	}
}

func TestChatsCommandsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Negative chat ids need the flag terminator so cobra treats them as
	// positional arguments.
	if _, err := runCommandForTest(t, "--config", path, "chats", "add", "--", "-100", "7"); err != nil {
		t.Fatalf("chats add: %v", err)
	}
	if _, err := runCommandForTest(t, "--config", path, "chats", "set-quality", "--", "-100", "high"); err != nil {
		t.Fatalf("chats set-quality: %v", err)
	}

	output, err := runCommandForTest(t, "--config", path, "chats", "list")
	if err != nil {
		t.Fatalf("chats list: %v", err)
	}
	if !strings.Contains(output, "-100") || !strings.Contains(output, "high") {
		t.Fatalf("expected listed chat with high quality, got %q", output)
	}

	output, err = runCommandForTest(t, "--config", path, "chats", "stats")
	if err != nil {
		t.Fatalf("chats stats: %v", err)
	}
	if !strings.Contains(output, "Groups: 1") {
		t.Fatalf("expected one group in stats, got %q", output)
	}
}
