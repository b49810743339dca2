package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/curator/internal/analyzer"
	"github.com/starford/curator/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "curator.db")
	return cfg
}

func TestOpen_SyncsAndWires(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "a.md"), []byte("# A\n\n[[b]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "b.md"), []byte("# B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cur, err := Open(cfg, testutil.QuietLogger(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cur.Close()

	if err := cur.DB.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	orphans, err := cur.Service.Orphans(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("orphans = %+v, want none", orphans)
	}

	run, err := cur.Service.Analyze(context.Background(), analyzer.TriggerManual)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(run.Improvements) == 0 {
		t.Error("expected at least the create-invariants proposal")
	}
	if _, err := os.Stat(filepath.Join(cfg.Vault.Path, cfg.Analysis.ActivityLogFile)); err != nil {
		t.Errorf("activity log not written: %v", err)
	}
}

func TestOpen_CreatesVaultDir(t *testing.T) {
	cfg := testConfig(t)
	cur, err := Open(cfg, testutil.QuietLogger(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cur.Close()
	if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
		t.Errorf("vault dir not created: %v", err)
	}
}

func TestNewGenerator_DisabledWithoutKey(t *testing.T) {
	gen, err := newGenerator(AIConfig{})
	if err != nil || gen != nil {
		t.Errorf("gen = %v, err = %v; want nil, nil", gen, err)
	}
	gen, err = newGenerator(AIConfig{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"})
	if err != nil || gen == nil {
		t.Errorf("gen = %v, err = %v; want generator", gen, err)
	}
}

func TestNewApplication_Options(t *testing.T) {
	if _, err := newApplication(nil, io.Discard); err == nil {
		t.Fatal("missing config should fail")
	}

	logger := testutil.QuietLogger()
	app, err := newApplication([]Option{WithConfig(NewDefaultConfig()), WithLogger(logger), WithVersion("1.2.3")}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if app.logger != logger || app.version != "1.2.3" {
		t.Errorf("app = %+v", app)
	}

	app, err = newApplication([]Option{WithConfig(NewDefaultConfig())}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if app.logger == nil || app.version != "dev" {
		t.Errorf("defaults not applied: %+v", app)
	}
}
