package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/store"
	"github.com/sadopc/tomato/internal/tracker"
)

// setupHome points HOME at a temp dir so the config and log files land
// there, and returns a database path inside it.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return filepath.Join(home, "tomato.db")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, db string, completed ...pomo.Completed) {
	t.Helper()
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	tr := tracker.Open(s, nil)
	for _, c := range completed {
		tr.RecordCompleted(c, "")
	}
}

// ============================================================
// Categories
// ============================================================

func TestCategoriesListDefaults(t *testing.T) {
	db := setupHome(t)

	out, err := run(t, "--db", db, "categories")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "* Work") {
		t.Errorf("expected Work marked as default, got:\n%s", out)
	}
	if !strings.Contains(out, "Learn") {
		t.Errorf("expected Learn in list, got:\n%s", out)
	}
}

func TestCategoriesAddAndDuplicate(t *testing.T) {
	db := setupHome(t)

	out, err := run(t, "--db", db, "categories", "add", "Music", "--color", "#10b981")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `Added "Music" (#10b981)`) {
		t.Errorf("unexpected output: %s", out)
	}

	_, err = run(t, "--db", db, "categories", "add", "music")
	var dup *pomo.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}

	out, _ = run(t, "--db", db, "cats")
	if !strings.Contains(out, "Music") {
		t.Errorf("Music not persisted:\n%s", out)
	}
}

func TestCategoriesRenameAndDefault(t *testing.T) {
	db := setupHome(t)

	if _, err := run(t, "--db", db, "categories", "rename", "learn", "Study"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--db", db, "categories", "default", "Study"); err != nil {
		t.Fatal(err)
	}

	out, _ := run(t, "--db", db, "categories")
	if !strings.Contains(out, "* Study") {
		t.Errorf("expected Study as default, got:\n%s", out)
	}
}

func TestCategoriesRemove(t *testing.T) {
	db := setupHome(t)
	seed(t, db, pomo.Completed{Description: "Report", Mode: pomo.ModeWork, Duration: 1500, EndedAt: time.Now()})

	_, err := run(t, "--db", db, "categories", "rm", "Nope", "--yes")
	if !errors.Is(err, pomo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	out, err := run(t, "--db", db, "categories", "rm", "Work", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `Default is now "Learn"`) {
		t.Errorf("unexpected output: %s", out)
	}

	out, _ = run(t, "--db", db, "categories")
	if !strings.Contains(out, "* Learn") || !strings.Contains(out, "1 session(s)") {
		t.Errorf("session should move to Learn:\n%s", out)
	}

	_, err = run(t, "--db", db, "categories", "rm", "Learn", "--yes")
	var last *pomo.LastCategoryError
	if !errors.As(err, &last) {
		t.Fatalf("expected LastCategoryError, got %v", err)
	}
}

// ============================================================
// History
// ============================================================

func TestHistoryEmpty(t *testing.T) {
	db := setupHome(t)

	out, err := run(t, "--db", db, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No sessions on") {
		t.Errorf("unexpected output: %s", out)
	}
	if strings.Contains(out, "last saved") {
		t.Errorf("nothing has been saved yet:\n%s", out)
	}
}

func TestHistoryToday(t *testing.T) {
	db := setupHome(t)
	now := time.Now()
	seed(t, db,
		pomo.Completed{Description: "Write report", Mode: pomo.ModeWork, Duration: 1500, EndedAt: now.Add(-time.Minute)},
		pomo.Completed{Description: "Coffee", Mode: pomo.ModeBreak, Duration: 300, EndedAt: now},
	)

	out, err := run(t, "--db", db, "history")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Today", "2 session(s)", "focus 25 min", "break 5 min", "Write report", "Coffee", "ago", "History last saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryDayFlag(t *testing.T) {
	db := setupHome(t)
	old := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local)
	seed(t, db, pomo.Completed{Description: "Old work", Mode: pomo.ModeWork, Duration: 600, EndedAt: old})

	out, err := run(t, "--db", db, "history", "--day", "2023-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Old work") {
		t.Errorf("expected session on 2023-05-01:\n%s", out)
	}

	out, _ = run(t, "--db", db, "history", "--days")
	if !strings.Contains(out, "2023-05-01  1 session(s)") {
		t.Errorf("expected day listing:\n%s", out)
	}

	if _, err := run(t, "--db", db, "history", "--day", "May 1"); err == nil {
		t.Fatal("expected error for malformed day")
	}
}

// ============================================================
// Export and clear
// ============================================================

func TestExportStdout(t *testing.T) {
	db := setupHome(t)
	seed(t, db, pomo.Completed{Description: "Write report", Mode: pomo.ModeWork, Duration: 1500, EndedAt: time.Now()})

	out, err := run(t, "--db", db, "export")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Timestamp,Mode,Description") {
		t.Errorf("expected CSV header, got:\n%s", out)
	}
	if !strings.Contains(out, "Write report") {
		t.Errorf("missing session row:\n%s", out)
	}

	out, err = run(t, "--db", db, "export", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"total_focus_seconds": 1500`) {
		t.Errorf("unexpected JSON:\n%s", out)
	}
}

func TestExportToFile(t *testing.T) {
	db := setupHome(t)
	seed(t, db, pomo.Completed{Description: "a", Mode: pomo.ModeWork, Duration: 60, EndedAt: time.Now()})

	path := filepath.Join(t.TempDir(), "out.json")
	if _, err := run(t, "--db", db, "export", "-f", "json", "-o", path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file not written: %v", err)
	}
}

func TestExportBadFormat(t *testing.T) {
	db := setupHome(t)
	if _, err := run(t, "--db", db, "export", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestClear(t *testing.T) {
	db := setupHome(t)
	seed(t, db, pomo.Completed{Description: "a", Mode: pomo.ModeWork, Duration: 60, EndedAt: time.Now()})

	out, err := run(t, "--db", db, "clear", "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cleared 1 session(s).") {
		t.Errorf("unexpected output: %s", out)
	}

	out, _ = run(t, "--db", db, "clear", "--yes")
	if !strings.Contains(out, "already empty") {
		t.Errorf("unexpected output: %s", out)
	}
}

// ============================================================
// Configuration
// ============================================================

func TestConfigFileDBPath(t *testing.T) {
	setupHome(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("db_path: "+db+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfgPath, "categories"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("database not created at configured path: %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	setupHome(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "init.db")
	cfgPath := filepath.Join(dir, "config.yaml")

	out, err := run(t, "--config", cfgPath, "--db", db, "config", "init")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote "+cfgPath) {
		t.Errorf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "db_path: "+db) {
		t.Errorf("written config missing db_path:\n%s", data)
	}

	// The written file is picked up without --db.
	if _, err := run(t, "--config", cfgPath, "categories"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("database not created at saved path: %v", err)
	}

	if _, err := run(t, "--config", cfgPath, "config", "init"); err == nil {
		t.Fatal("expected error when the config file exists")
	}
	if _, err := run(t, "--config", cfgPath, "config", "init", "--force"); err != nil {
		t.Fatalf("--force should overwrite: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	setupHome(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "paths.db")
	cfgPath := filepath.Join(dir, "config.yaml")

	out, err := run(t, "--config", cfgPath, "--db", db, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"config:   " + cfgPath, "database: " + db, "log:"} {
		if !strings.Contains(out, want) {
			t.Errorf("config path output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(cfgPath); err == nil {
		t.Error("config path must not create the file")
	}
}

func TestBadConfigFile(t *testing.T) {
	setupHome(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("db_path: [unclosed"), 0o644)

	if _, err := run(t, "--config", cfgPath, "categories"); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestRootRejectsArgs(t *testing.T) {
	setupHome(t)
	if _, err := run(t, "bogus"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
