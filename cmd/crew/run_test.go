package main

import (
	"os"
	"path/filepath"
	"testing"
)

// setRunFlags configures the run command's flag globals for a test and
// restores them afterward.
func setRunFlags(t *testing.T, static, verbose bool) {
	t.Helper()
	prevStatic, prevVerbose := runStatic, runVerbose
	prevWorkers, prevLimit, prevDB := runWorkers, runCostLimit, runCacheDB
	runStatic, runVerbose = static, verbose
	runWorkers, runCostLimit, runCacheDB = 0, 0, ""
	t.Cleanup(func() {
		runStatic, runVerbose = prevStatic, prevVerbose
		runWorkers, runCostLimit, runCacheDB = prevWorkers, prevLimit, prevDB
	})
}

func TestRunPlan_StaticInvoker(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	setRunFlags(t, true, false)

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	content := `
tasks:
  - id: gather
    description: collect notes
    category: research
  - id: write
    description: draft summary
    category: writing
    depends_on: [gather]
`
	if err := os.WriteFile(planPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}

	failed, err := runPlan(planPath)
	if err != nil {
		t.Fatalf("runPlan: %v", err)
	}
	if failed {
		t.Error("static run should succeed, not report failure")
	}
}

func TestRunPlan_MissingPlanFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	setRunFlags(t, true, false)

	if _, err := runPlan(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing plan file")
	}
}
