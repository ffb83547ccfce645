// Package processing orchestrates per-file encode runs: analysis,
// adaptation, crop detection, pass sequencing, and validation.
package processing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffmpeg"
)

// RunState tracks a pass plan through its lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StatePass1Running
	StatePass1Complete
	StatePass2Running
	StateComplete
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePass1Running:
		return "pass1-running"
	case StatePass1Complete:
		return "pass1-complete"
	case StatePass2Running:
		return "pass2-running"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PassPlan is the ordered pass sequence for one run. The stats file
// exists only for the lifetime of the plan; Cleanup removes it whether
// the run succeeded or not.
type PassPlan struct {
	Mode      config.EncodingMode
	Passes    []ffmpeg.Pass
	StatsFile string

	state RunState
}

// NewPassPlan builds the pass sequence for a mode. CRF mode is a single
// final pass. The two-pass modes run a fast analysis pass that writes
// rate-control statistics, then the final pass at the profile preset.
// The stats path is namespaced under runID so concurrent runs sharing a
// temp directory never collide.
func NewPassPlan(mode config.EncodingMode, finalPreset, tempDir, runID string) *PassPlan {
	plan := &PassPlan{Mode: mode, state: StateIdle}

	if !mode.UsesStats() {
		plan.Passes = []ffmpeg.Pass{
			{Purpose: ffmpeg.PurposeFinal, Index: 1, Preset: finalPreset},
		}
		return plan
	}

	plan.StatsFile = filepath.Join(tempDir, runID+".stats")
	plan.Passes = []ffmpeg.Pass{
		{Purpose: ffmpeg.PurposeAnalysis, Index: 1, Preset: config.AnalysisPassPreset, StatsFile: plan.StatsFile},
		{Purpose: ffmpeg.PurposeFinal, Index: 2, Preset: finalPreset, StatsFile: plan.StatsFile},
	}
	return plan
}

// State returns the current lifecycle state.
func (p *PassPlan) State() RunState {
	return p.state
}

// Begin transitions the plan into the running state for the given pass.
func (p *PassPlan) Begin(passIndex int) error {
	switch {
	case passIndex == 1 && p.state == StateIdle:
		p.state = StatePass1Running
	case passIndex == 2 && p.state == StatePass1Complete:
		p.state = StatePass2Running
	default:
		return fmt.Errorf("cannot begin pass %d from state %s", passIndex, p.state)
	}
	return nil
}

// Complete marks the given pass finished. Completing the last pass of
// the plan completes the run.
func (p *PassPlan) Complete(passIndex int) error {
	switch {
	case passIndex == 1 && p.state == StatePass1Running:
		if len(p.Passes) == 1 {
			p.state = StateComplete
		} else {
			p.state = StatePass1Complete
		}
	case passIndex == 2 && p.state == StatePass2Running:
		p.state = StateComplete
	default:
		return fmt.Errorf("cannot complete pass %d from state %s", passIndex, p.state)
	}
	return nil
}

// Fail aborts the plan from any running state. A failed plan never
// advances; there is no automatic retry.
func (p *PassPlan) Fail() {
	p.state = StateFailed
}

// Cleanup removes stats artifacts best-effort. Called on both success
// and failure paths.
func (p *PassPlan) Cleanup() {
	if p.StatsFile == "" {
		return
	}
	_ = os.Remove(p.StatsFile)
	_ = os.Remove(p.StatsFile + ".cutree")
	_ = os.Remove(p.StatsFile + ".temp")
	_ = os.Remove(p.StatsFile + "-0.log")
	_ = os.Remove(p.StatsFile + "-0.log.mbtree")
}
