package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"engined/internal/loader"
	"engined/pkg/types"
)

type stubBinding struct{}

func (stubBinding) LoadNative(string) loader.Outcome {
	return loader.Outcome{Kind: loader.OutcomeNotFound, Message: "not found"}
}
func (stubBinding) LoadBundled() loader.Outcome { return loader.Outcome{Kind: loader.OutcomeLoaded} }
func (stubBinding) Version() string             { return "1.15.0" }
func (stubBinding) GPU() *bool                  { return nil }

func run(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(&rootOptions{binding: stubBinding{}})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--root", root, "--platform", "linux64", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusCommand_JSON(t *testing.T) {
	out, err := run(t, t.TempDir(), "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st types.StatusResponse
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("json: %v (%q)", err, out)
	}
	if st.Status != "loaded" || st.Loaded == nil || st.Loaded.Version != "1.15.0" || st.Platform != "linux64" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestVersionsList_Table(t *testing.T) {
	out, err := run(t, t.TempDir(), "versions", "list", "--mode", "GPU", "--tf", "1.15.0")
	if err != nil {
		t.Fatalf("versions list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "VERSION") || !strings.Contains(lines[1], "GPU") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestVersionsActivate_RequiresVersion(t *testing.T) {
	if _, err := run(t, t.TempDir(), "versions", "activate"); err == nil {
		t.Fatalf("expected error without version")
	}
}

func TestVersionsActivate_Bundled(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib", "linux64", "libtensorflow_jni.so")
	if err := os.MkdirAll(filepath.Dir(lib), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(lib, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, root, "versions", "activate", "--bundled")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !strings.Contains(out, "restart to apply") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(lib); !os.IsNotExist(err) {
		t.Fatalf("native library kept: %v", err)
	}
}

func TestModelsList_JSON(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "models", "mnist"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	out, err := run(t, root, "--json", "models", "list")
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].Name != "mnist" {
		t.Fatalf("unexpected models: %+v", resp.Models)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "engined.yaml")
	if err := os.WriteFile(cfgPath, []byte("root: /from/file\naddr: :1111\nlog_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ENGINED_ADDR", ":2222")
	o := &rootOptions{}
	cmd := newRootCmdWith(o)
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--root", dir}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Root != dir || cfg.Addr != ":2222" || cfg.LogLevel != "debug" || cfg.MaxRetries == 0 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}
