// Package validation provides post-encode validation checks.
package validation

import "fmt"

// Result contains the overall validation result.
type Result struct {
	IsHEVC                   bool
	IsCropCorrect            bool
	IsDurationCorrect        bool
	IsHDRCorrect             bool
	IsAudioTrackCountCorrect bool
	IsSyncPreserved          bool

	// Details
	CodecName          string
	ActualDimensions   *[2]int
	ExpectedDimensions *[2]int
	CropMessage        string
	ActualDuration     *float64
	ExpectedDuration   *float64
	DurationMessage    string
	ExpectedHDR        *bool
	ActualHDR          *bool
	HDRMessage         string
	AudioTracks        int
	AudioMessage       string
	SyncDriftMs        *float64
	SyncMessage        string
}

// Step represents a single validation check.
type Step struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.IsHEVC &&
		r.IsCropCorrect &&
		r.IsDurationCorrect &&
		r.IsHDRCorrect &&
		r.IsAudioTrackCountCorrect &&
		r.IsSyncPreserved
}

// Steps returns all validation steps with results.
func (r *Result) Steps() []Step {
	return []Step{
		{
			Name:    "Video codec",
			Passed:  r.IsHEVC,
			Details: formatCodecDetails(r.CodecName, r.IsHEVC),
		},
		{
			Name:    "Output dimensions",
			Passed:  r.IsCropCorrect,
			Details: r.CropMessage,
		},
		{
			Name:    "Video duration",
			Passed:  r.IsDurationCorrect,
			Details: r.DurationMessage,
		},
		{
			Name:    "HDR/SDR status",
			Passed:  r.IsHDRCorrect,
			Details: r.HDRMessage,
		},
		{
			Name:    "Audio tracks",
			Passed:  r.IsAudioTrackCountCorrect,
			Details: r.AudioMessage,
		},
		{
			Name:    "Audio/video sync",
			Passed:  r.IsSyncPreserved,
			Details: r.SyncMessage,
		},
	}
}

// Failures returns descriptions of failed validation checks.
func (r *Result) Failures() []string {
	var failures []string
	for _, step := range r.Steps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func formatCodecDetails(codecName string, passed bool) string {
	if passed {
		return fmt.Sprintf("HEVC (%s)", codecName)
	}
	if codecName != "" {
		return "Expected HEVC, got " + codecName
	}
	return "Unknown codec"
}
