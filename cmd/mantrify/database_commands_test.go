package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mantrify/internal/api"
)

func TestAdminDatabaseBackupCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "", "admin", "database", "list")
	if err != nil || !strings.Contains(out, "No backups available") {
		t.Fatalf("empty list: %v\n%s", err, out)
	}

	out, err = env.run(t, "", "admin", "database", "create")
	if err != nil || !strings.Contains(out, "Created backup backup-001.json (3 tables)") {
		t.Fatalf("create: %v\n%s", err, out)
	}

	out, err = env.run(t, "", "admin", "database", "list")
	if err != nil || !strings.Contains(out, "backup-001.json") {
		t.Fatalf("list: %v\n%s", err, out)
	}

	target := filepath.Join(env.baseDir, "local.json")
	out, err = env.run(t, "", "admin", "database", "download", "backup-001.json", "-o", target)
	if err != nil || !strings.Contains(out, "Saved backup-001.json to "+target) {
		t.Fatalf("download: %v\n%s", err, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.Contains(string(data), `"meditations"`) {
		t.Fatalf("unexpected download content %q", data)
	}

	if _, err := env.run(t, "", "admin", "database", "download", "backup-001.json", "-o", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	out, err = env.run(t, "n\n", "admin", "database", "delete", "backup-001.json")
	if !errors.Is(err, errAborted) || !env.backend.HasBackup("backup-001.json") {
		t.Fatalf("expected aborted delete, got %v\n%s", err, out)
	}
	out, err = env.run(t, "", "admin", "database", "delete", "backup-001.json", "--yes")
	if err != nil || !strings.Contains(out, "Deleted backup backup-001.json") {
		t.Fatalf("delete: %v\n%s", err, out)
	}
	if env.backend.HasBackup("backup-001.json") {
		t.Fatal("backup still stored after delete")
	}
}

func TestAdminDatabaseDownloadMissingLeavesNoFile(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "missing.json")

	_, err := env.run(t, "", "admin", "database", "download", "missing.json", "-o", target)
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("download target should not exist: %v", statErr)
	}
	entries, err := os.ReadDir(env.baseDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".mantrify-backup-") {
			t.Fatalf("temporary download left behind: %s", e.Name())
		}
	}
}

func TestAdminDatabaseRestore(t *testing.T) {
	env := setupCLITestEnv(t)
	dump := filepath.Join(env.baseDir, "dump.json")
	if err := os.WriteFile(dump, []byte(`{"users":[{"id":1},{"id":2}],"meditations":[{"id":3}]}`), 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}

	out, err := env.run(t, "n\n", "admin", "database", "restore", dump)
	if !errors.Is(err, errAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if !strings.Contains(out, restoreWarning) {
		t.Fatalf("restore warning missing:\n%s", out)
	}
	if env.backend.RestoredDump() != nil {
		t.Fatal("dump uploaded despite abort")
	}

	out, err = env.run(t, "", "admin", "database", "restore", dump, "--yes")
	if err != nil || !strings.Contains(out, "Restored 2 tables (3 rows)") {
		t.Fatalf("restore: %v\n%s", err, out)
	}
}
