package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wsideid/internal/config"
	"wsideid/internal/store"
	"wsideid/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, base)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
import_dir = %q
export_dir = %q
data_dir = %q

[workflow]
parallelism = 1
`,
		filepath.Join(base, "import"),
		filepath.Join(base, "export"),
		filepath.Join(base, "data"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func seedItem(t *testing.T, env *cliTestEnv, imageID string, state workflow.State) *store.Item {
	t.Helper()
	item, err := env.store.Insert(context.Background(), store.NewItemParams{
		ImageID: imageID,
		TokenID: "T0001",
		Name:    imageID + ".svs",
		State:   state,
	})
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return item
}

func TestCLIStatusAndListCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No items under management")

	seedItem(t, env, "IMG_0001", workflow.StateIngest)
	seedItem(t, env, "IMG_0002", workflow.StateFinished)

	out, _, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "ingest")
	requireContains(t, out, "finished")
	requireContains(t, out, "total")

	out, _, err = runCLI(t, env.configPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "IMG_0001")
	requireContains(t, out, "IMG_0002")

	out, _, err = runCLI(t, env.configPath, "list", "--state", "finished")
	if err != nil {
		t.Fatalf("list --state: %v", err)
	}
	requireContains(t, out, "IMG_0002")
	if strings.Contains(out, "IMG_0001") {
		t.Fatalf("state filter leaked items:\n%s", out)
	}

	if _, _, err := runCLI(t, env.configPath, "list", "--state", "limbo"); err == nil {
		t.Fatal("expected unknown state to fail")
	}

	out, _, err = runCLI(t, env.configPath, "next")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	requireContains(t, out, "IMG_0001")
}

func TestCLIItemActions(t *testing.T) {
	env := setupCLITestEnv(t)
	item := seedItem(t, env, "IMG_0010", workflow.StateIngest)

	out, _, err := runCLI(t, env.configPath, "process", fmt.Sprintf("%d", item.ID), "--actor", "reviewer1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "is now processed")

	out, _, err = runCLI(t, env.configPath, "finish", fmt.Sprintf("%d", item.ID))
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	requireContains(t, out, "is now finished")

	// Finishing again is an illegal transition and must fail.
	if _, _, err := runCLI(t, env.configPath, "finish", fmt.Sprintf("%d", item.ID)); err == nil {
		t.Fatal("expected repeated finish to fail")
	}

	if _, _, err := runCLI(t, env.configPath, "finish", "not-a-number"); err == nil {
		t.Fatal("expected invalid id to fail")
	}

	updated, err := env.store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.State != workflow.StateFinished {
		t.Fatalf("expected finished, got %s", updated.State)
	}
}

func TestCLIBulkCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	first := seedItem(t, env, "IMG_0020", workflow.StateProcessed)
	second := seedItem(t, env, "IMG_0021", workflow.StateProcessed)

	out, _, err := runCLI(t, env.configPath, "bulk", "finish",
		fmt.Sprintf("%d", first.ID), "9999", fmt.Sprintf("%d", second.ID))
	if err != nil {
		t.Fatalf("bulk finish: %v", err)
	}
	requireContains(t, out, "Applied finish to 2 of 3 items")
	requireContains(t, out, "item 9999:")
}

func TestCLIRefileCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	err := env.store.UpsertManifestRow(ctx, store.ManifestRow{
		ImageID: "IMG_0030", TokenID: "T0030",
		Fields: map[string]string{"TokenID": "T0030"},
		Source: "manifest.csv", Line: 2,
	})
	if err != nil {
		t.Fatalf("UpsertManifestRow: %v", err)
	}
	item := seedItem(t, env, "stray-scan", workflow.StateUnfiled)

	out, _, err := runCLI(t, env.configPath, "refile-list")
	if err != nil {
		t.Fatalf("refile-list: %v", err)
	}
	requireContains(t, out, "IMG_0030")

	out, _, err = runCLI(t, env.configPath, "refile", fmt.Sprintf("%d", item.ID), "IMG_0030")
	if err != nil {
		t.Fatalf("refile: %v", err)
	}
	requireContains(t, out, "refiled as IMG_0030")

	out, _, err = runCLI(t, env.configPath, "refile-list")
	if err != nil {
		t.Fatalf("refile-list after: %v", err)
	}
	requireContains(t, out, "No unattached manifest rows")
}

func TestCLIExportCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Nothing to export")

	out, _, err = runCLI(t, env.configPath, "exportall")
	if err != nil {
		t.Fatalf("exportall: %v", err)
	}
	requireContains(t, out, "Nothing to export")
}
