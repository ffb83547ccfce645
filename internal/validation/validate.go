package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jdhalbert/requant/internal/ffprobe"
)

const (
	// durationToleranceSecs is the maximum allowed difference in duration
	// between input and output.
	durationToleranceSecs = 1.0

	// maxSyncDriftMs is the maximum allowed audio/video sync drift.
	maxSyncDriftMs = 100.0
)

// Expectation describes what the output file should look like. Nil
// fields skip their check.
type Expectation struct {
	Dimensions   *[2]int // post-crop width and height
	DurationSecs *float64
	HDR          *bool
	AudioTracks  *int
}

// ValidateOutput probes the encoded output and validates it against the
// expectation derived from the input probe and the encode plan.
func ValidateOutput(ctx context.Context, outputPath string, exp Expectation) (*Result, error) {
	probe, err := ffprobe.Probe(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe output: %w", err)
	}
	return Validate(probe, exp), nil
}

// Validate checks an output probe against the expectation. It is pure;
// callers that already hold a probe can validate without touching the
// filesystem.
func Validate(out *ffprobe.MediaProbe, exp Expectation) *Result {
	result := &Result{
		IsCropCorrect:            true,
		IsDurationCorrect:        true,
		IsHDRCorrect:             true,
		IsAudioTrackCountCorrect: true,
		IsSyncPreserved:          true,
	}

	result.CodecName = out.CodecName
	codec := strings.ToLower(out.CodecName)
	result.IsHEVC = strings.Contains(codec, "hevc") || strings.Contains(codec, "h265") || strings.Contains(codec, "x265")

	if exp.Dimensions != nil {
		result.ActualDimensions = &[2]int{out.Width, out.Height}
		result.ExpectedDimensions = exp.Dimensions
		result.IsCropCorrect, result.CropMessage = validateDimensions(
			out.Width, out.Height, exp.Dimensions[0], exp.Dimensions[1])
	} else {
		result.CropMessage = "No dimension expectation"
	}

	if exp.DurationSecs != nil {
		actual := out.DurationSecs
		result.ActualDuration = &actual
		result.ExpectedDuration = exp.DurationSecs
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actual, *exp.DurationSecs)

		result.IsSyncPreserved, result.SyncDriftMs, result.SyncMessage = validateSync(actual, *exp.DurationSecs)
	} else {
		result.DurationMessage = "Duration validation skipped"
		result.SyncMessage = "Sync validation skipped"
	}

	if exp.HDR != nil {
		result.ActualHDR = &out.IsHDR
		result.ExpectedHDR = exp.HDR
		if *exp.HDR == out.IsHDR {
			result.IsHDRCorrect = true
			result.HDRMessage = dynamicRange(out.IsHDR) + " preserved"
		} else {
			result.IsHDRCorrect = false
			result.HDRMessage = fmt.Sprintf("Expected %s, found %s",
				dynamicRange(*exp.HDR), dynamicRange(out.IsHDR))
		}
	} else {
		result.HDRMessage = "Output is " + dynamicRange(out.IsHDR)
	}

	result.AudioTracks = out.AudioStreams
	if exp.AudioTracks != nil {
		if out.AudioStreams == *exp.AudioTracks {
			result.AudioMessage = fmt.Sprintf("%d audio track(s) carried through", out.AudioStreams)
		} else {
			result.IsAudioTrackCountCorrect = false
			result.AudioMessage = fmt.Sprintf("Audio track mismatch: got %d, expected %d",
				out.AudioStreams, *exp.AudioTracks)
		}
	} else {
		result.AudioMessage = fmt.Sprintf("%d audio track(s)", out.AudioStreams)
	}

	return result
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH int) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateDuration checks that duration is within acceptable tolerance.
func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)

	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("Duration matches input (%.1fs)", actual)
	}
	return false, fmt.Sprintf("Duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// validateSync checks audio/video sync drift.
func validateSync(outputDuration, inputDuration float64) (bool, *float64, string) {
	driftMs := math.Abs(outputDuration-inputDuration) * 1000
	preserved := driftMs <= maxSyncDriftMs

	message := fmt.Sprintf("Audio/video sync preserved (drift: %.1fms)", driftMs)
	if !preserved {
		message = fmt.Sprintf("Audio/video sync drift too large: %.1fms (max: %.1fms)", driftMs, maxSyncDriftMs)
	}

	return preserved, &driftMs, message
}

func dynamicRange(hdr bool) string {
	if hdr {
		return "HDR"
	}
	return "SDR"
}
