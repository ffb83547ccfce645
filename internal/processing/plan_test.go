package processing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffmpeg"
)

func TestNewPassPlanCRF(t *testing.T) {
	plan := NewPassPlan(config.ModeCRF, "slow", t.TempDir(), "run-1")

	if len(plan.Passes) != 1 {
		t.Fatalf("CRF plan has %d passes, want 1", len(plan.Passes))
	}
	if plan.Passes[0].Purpose != ffmpeg.PurposeFinal {
		t.Error("the single CRF pass must be the final pass")
	}
	if plan.StatsFile != "" {
		t.Error("CRF plan must not allocate a stats file")
	}
}

func TestNewPassPlanTwoPass(t *testing.T) {
	for _, mode := range []config.EncodingMode{config.ModeABR, config.ModeCBR} {
		plan := NewPassPlan(mode, "slow", t.TempDir(), "run-1")

		if len(plan.Passes) != 2 {
			t.Fatalf("%s plan has %d passes, want 2", mode, len(plan.Passes))
		}
		if plan.Passes[0].Purpose != ffmpeg.PurposeAnalysis {
			t.Errorf("%s pass 1 must be the analysis pass", mode)
		}
		if plan.Passes[0].Preset != config.AnalysisPassPreset {
			t.Errorf("%s analysis pass preset = %q, want %q", mode, plan.Passes[0].Preset, config.AnalysisPassPreset)
		}
		if plan.Passes[1].Purpose != ffmpeg.PurposeFinal || plan.Passes[1].Preset != "slow" {
			t.Errorf("%s pass 2 must be the final pass at the profile preset", mode)
		}
		if plan.StatsFile == "" {
			t.Errorf("%s plan must allocate a stats file", mode)
		}
		if plan.Passes[0].StatsFile != plan.StatsFile || plan.Passes[1].StatsFile != plan.StatsFile {
			t.Errorf("%s passes must share the plan stats file", mode)
		}
	}
}

func TestPassPlanStatsNamespacedPerRun(t *testing.T) {
	dir := t.TempDir()
	a := NewPassPlan(config.ModeABR, "slow", dir, "run-a")
	b := NewPassPlan(config.ModeABR, "slow", dir, "run-b")

	if a.StatsFile == b.StatsFile {
		t.Error("concurrent runs must not share a stats path")
	}
}

func TestPassPlanStateMachine(t *testing.T) {
	plan := NewPassPlan(config.ModeABR, "slow", t.TempDir(), "run-1")

	if plan.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", plan.State())
	}

	// Pass 2 cannot start before pass 1 completed.
	if err := plan.Begin(2); err == nil {
		t.Fatal("pass 2 must not begin from idle")
	}

	if err := plan.Begin(1); err != nil {
		t.Fatal(err)
	}
	if plan.State() != StatePass1Running {
		t.Errorf("state = %s, want pass1-running", plan.State())
	}

	if err := plan.Complete(1); err != nil {
		t.Fatal(err)
	}
	if plan.State() != StatePass1Complete {
		t.Errorf("state = %s, want pass1-complete", plan.State())
	}

	if err := plan.Begin(2); err != nil {
		t.Fatal(err)
	}
	if err := plan.Complete(2); err != nil {
		t.Fatal(err)
	}
	if plan.State() != StateComplete {
		t.Errorf("state = %s, want complete", plan.State())
	}
}

func TestPassPlanSinglePassCompletesImmediately(t *testing.T) {
	plan := NewPassPlan(config.ModeCRF, "slow", t.TempDir(), "run-1")

	if err := plan.Begin(1); err != nil {
		t.Fatal(err)
	}
	if err := plan.Complete(1); err != nil {
		t.Fatal(err)
	}
	if plan.State() != StateComplete {
		t.Errorf("state = %s, want complete after the only pass", plan.State())
	}
}

func TestPassPlanFailedNeverAdvances(t *testing.T) {
	plan := NewPassPlan(config.ModeABR, "slow", t.TempDir(), "run-1")

	_ = plan.Begin(1)
	plan.Fail()

	if plan.State() != StateFailed {
		t.Fatalf("state = %s, want failed", plan.State())
	}
	if err := plan.Begin(2); err == nil {
		t.Error("a failed plan must not begin another pass")
	}
	if err := plan.Complete(1); err == nil {
		t.Error("a failed plan must not complete a pass")
	}
}

func TestPassPlanCleanupRemovesStats(t *testing.T) {
	dir := t.TempDir()
	plan := NewPassPlan(config.ModeCBR, "slow", dir, "run-1")

	for _, suffix := range []string{"", ".cutree"} {
		if err := os.WriteFile(plan.StatsFile+suffix, []byte("stats"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	plan.Cleanup()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("stats artifact survived cleanup: %s", filepath.Join(dir, e.Name()))
	}
}

func TestPassPlanCleanupWithoutStatsIsNoop(t *testing.T) {
	plan := NewPassPlan(config.ModeCRF, "slow", t.TempDir(), "run-1")
	plan.Cleanup() // must not panic or error
}
