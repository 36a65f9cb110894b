package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/sprintyard/internal/db"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/models"
	"github.com/zulandar/sprintyard/internal/sprint"
	"gorm.io/gorm"
)

// writeConfig writes a SQLite-backed config into a temp dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sy.db")
	cfgPath := filepath.Join(dir, "sprintyard.yaml")
	yaml := fmt.Sprintf("owner: alice\ndatabase:\n  driver: sqlite\n  path: %s\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dbPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("sy %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// createdID extracts the ID from a "Created <kind> <id>" line.
func createdID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) == 3 && f[0] == "Created" {
			return f[2]
		}
	}
	t.Fatalf("no Created line in:\n%s", out)
	return ""
}

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	gormDB, err := db.ConnectSQLite(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return gormDB
}

func TestCLI_SprintRoundTrip(t *testing.T) {
	cfg, dbPath := writeConfig(t)

	out := mustRun(t, "db", "init", "-c", cfg)
	if !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("db init output: %s", out)
	}

	pid := createdID(t, mustRun(t, "project", "create", "--title", "Webshop", "--weeks", "1", "-c", cfg))
	story := createdID(t, mustRun(t, "item", "create", "--project", pid, "--title", "Checkout", "--type", "story", "-c", cfg))
	taskA := createdID(t, mustRun(t, "item", "create", "--project", pid, "--title", "Pay", "--effort", "3", "--parent", story, "-c", cfg))
	createdID(t, mustRun(t, "item", "create", "--project", pid, "--title", "Ship", "--effort", "2", "--parent", story, "-c", cfg))

	gormDB := openTestDB(t, dbPath)
	ready, err := sprint.Current(gormDB, pid)
	if err != nil || ready == nil {
		t.Fatalf("current sprint: %v", err)
	}

	out = mustRun(t, "item", "move", story, "--sprint", ready.ID, "-c", cfg)
	if !strings.Contains(out, "is ready") {
		t.Errorf("move output: %s", out)
	}

	// A task added under the scheduled story follows it into the sprint.
	out = mustRun(t, "item", "create", "--project", pid, "--title", "Invoice", "--effort", "1", "--parent", story, "-c", cfg)
	if !strings.Contains(out, "Status: ready") {
		t.Errorf("create under scheduled parent: %s", out)
	}

	out = mustRun(t, "sprint", "start", ready.ID, "--goal", "Take payments", "-c", cfg)
	if !strings.Contains(out, "Started sprint 1 (effort 6") {
		t.Errorf("start output: %s", out)
	}

	out = mustRun(t, "board", "move", ready.ID, taskA, "--by", "3", "-c", cfg)
	if !strings.Contains(out, "is now done") {
		t.Errorf("board move output: %s", out)
	}

	out = mustRun(t, "board", "show", ready.ID, "-c", cfg)
	if !strings.Contains(out, "done") || !strings.Contains(out, "Pay") {
		t.Errorf("board show output: %s", out)
	}

	out = mustRun(t, "report", "burndown", "--sprint", ready.ID, "-c", cfg)
	if !strings.Contains(out, "Start") || !strings.Contains(out, "(Finish)") {
		t.Errorf("sprint burndown output: %s", out)
	}

	out = mustRun(t, "report", "done", ready.ID, "--json", "-c", cfg)
	var days []effort.DayCount
	if err := json.Unmarshal([]byte(out), &days); err != nil {
		t.Fatalf("decode done report: %v\n%s", err, out)
	}
	if len(days) != 1 || days[0].Effort != 3 {
		t.Errorf("done report = %+v", days)
	}

	out = mustRun(t, "sprint", "finish", ready.ID, "-c", cfg)
	for _, want := range []string{"velocity 3 of 6", "carried over: ", "Next sprint: 2", "Team velocity is now 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("finish output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "sprint", "history", pid, "-c", cfg)
	if !strings.Contains(out, ready.ID) {
		t.Errorf("history output: %s", out)
	}

	out = mustRun(t, "project", "show", pid, "-c", cfg)
	for _, want := range []string{"Remaining effort: 3", "Current sprint:   2 (ready)"} {
		if !strings.Contains(out, want) {
			t.Errorf("project show missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "report", "burndown", "--project", pid, "-c", cfg)
	if !strings.Contains(out, "Sprint 1") {
		t.Errorf("project burndown output: %s", out)
	}

	var task models.Item
	if err := gormDB.Where("id = ?", taskA).First(&task).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.ItemFinished {
		t.Errorf("done task status = %q, want finished", task.Status)
	}
}

func TestCLI_StartEmptySprintFails(t *testing.T) {
	cfg, dbPath := writeConfig(t)
	mustRun(t, "db", "init", "-c", cfg)
	pid := createdID(t, mustRun(t, "project", "create", "--title", "Empty", "-c", cfg))

	ready, err := sprint.Current(openTestDB(t, dbPath), pid)
	if err != nil || ready == nil {
		t.Fatalf("current sprint: %v", err)
	}
	out, err := runCLI(t, "", "sprint", "start", ready.ID, "-c", cfg)
	if err == nil || !strings.Contains(err.Error(), "zero effort") {
		t.Fatalf("err = %v, want zero effort error\n%s", err, out)
	}
}

func TestCLI_DeleteNeedsConfirmation(t *testing.T) {
	cfg, _ := writeConfig(t)
	mustRun(t, "db", "init", "-c", cfg)
	pid := createdID(t, mustRun(t, "project", "create", "--title", "Doomed", "-c", cfg))

	out, err := runCLI(t, "no\n", "project", "delete", pid, "-c", cfg)
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("declined delete: err=%v out=%s", err, out)
	}

	out, err = runCLI(t, "yes\n", "project", "delete", pid, "-c", cfg)
	if err != nil || !strings.Contains(out, "Deleted project") {
		t.Fatalf("confirmed delete: err=%v out=%s", err, out)
	}

	out = mustRun(t, "project", "list", "-c", cfg)
	if !strings.Contains(out, "No projects found.") {
		t.Errorf("list after delete: %s", out)
	}
}

func TestCLI_ItemDeleteConfirmsOnlyWithChildren(t *testing.T) {
	cfg, _ := writeConfig(t)
	mustRun(t, "db", "init", "-c", cfg)
	pid := createdID(t, mustRun(t, "project", "create", "--title", "Webshop", "-c", cfg))
	story := createdID(t, mustRun(t, "item", "create", "--project", pid, "--title", "Checkout", "--type", "story", "-c", cfg))
	task := createdID(t, mustRun(t, "item", "create", "--project", pid, "--title", "Pay", "--effort", "2", "--parent", story, "-c", cfg))

	out, err := runCLI(t, "no\n", "item", "delete", story, "-c", cfg)
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("declined delete: err=%v out=%s", err, out)
	}

	out, err = runCLI(t, "", "item", "delete", task, "-c", cfg)
	if err != nil || !strings.Contains(out, "Deleted item "+task) {
		t.Fatalf("leaf delete: err=%v out=%s", err, out)
	}
	out, err = runCLI(t, "", "item", "delete", story, "-c", cfg)
	if err != nil || !strings.Contains(out, "Deleted item "+story) {
		t.Fatalf("childless delete: err=%v out=%s", err, out)
	}
}
