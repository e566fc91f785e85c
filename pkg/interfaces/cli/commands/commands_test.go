package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/infrastructure/config"
)

const csvTestdata = "../../../infrastructure/repositories/csv/testdata"

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	cfg.Database.Path = filepath.Join(t.TempDir(), "wirecut.db")

	app, err := newAppWith(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newAppWith failed: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestSyncCommand_FromCSV(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	cmd := NewSyncCommand(app, SyncConfig{CSVDir: csvTestdata, Format: "json"}, &out)
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var result dto.ReconcileResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode %q: %v", out.String(), err)
	}
	if result.Inserted == 0 {
		t.Errorf("Expected inserted items, got %+v", result)
	}
	if result.Skipped == 0 {
		t.Errorf("Expected the malformed row to be skipped, got %+v", result)
	}
	if _, err := app.Store.SalesOrders().GetByNumber(context.Background(), "SO-100"); err != nil {
		t.Errorf("Expected SO-100 in the store, got %v", err)
	}
}

func TestSyncCommand_RejectsFormat(t *testing.T) {
	app := newTestApp(t)
	cmd := NewSyncCommand(app, SyncConfig{CSVDir: csvTestdata, Format: "xml"}, &bytes.Buffer{})
	if err := cmd.Execute(context.Background()); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestSyncCommand_NoSource(t *testing.T) {
	app := newTestApp(t)
	cmd := NewSyncCommand(app, SyncConfig{Format: "text"}, &bytes.Buffer{})
	err := cmd.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no ERP source configured") {
		t.Errorf("Expected missing source error, got %v", err)
	}
}

// runRoot executes the command tree against a config dir whose database
// lives in dir
func runRoot(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", dir}, args...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestRootCommand_CutterAndJob(t *testing.T) {
	dir := t.TempDir()
	yaml := fmt.Sprintf("database:\n  path: %s\nlog:\n  level: error\n", filepath.Join(dir, "wirecut.db"))
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out := runRoot(t, dir, "cutter", "add", "Komax 1")
	if !strings.Contains(out, "Wire cutter 1: Komax 1") {
		t.Errorf("Expected cutter 1, got %q", out)
	}
	out = runRoot(t, dir, "cutter", "list")
	if !strings.Contains(out, "Komax 1") {
		t.Errorf("Expected Komax 1 in list, got %q", out)
	}

	runRoot(t, dir, "job", "create", "1")
	out = runRoot(t, dir, "job", "list", "--format", "json")
	var jobs []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("failed to decode %q: %v", out, err)
	}
	if len(jobs) != 1 {
		t.Errorf("Expected 1 job, got %d", len(jobs))
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q): expected error %v, got %v", tt.in, tt.wantErr, err)
		}
		if got != tt.want {
			t.Errorf("parseID(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
