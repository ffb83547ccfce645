package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	rqerr "github.com/jdhalbert/requant/internal/errors"
)

// FrameType is a picture type reported by the decoder.
type FrameType byte

const (
	FrameI FrameType = 'I'
	FrameP FrameType = 'P'
	FrameB FrameType = 'B'
)

// frameSample is the -show_frames JSON shape we care about.
type frameSample struct {
	Frames []struct {
		PictType string `json:"pict_type"`
	} `json:"frames"`
}

func runFFprobeRaw(ctx context.Context, args ...string) (*frameSample, error) {
	base := []string{"-v", "quiet", "-print_format", "json"}
	cmd := exec.CommandContext(ctx, "ffprobe", append(base, args...)...)

	output, err := cmd.Output()
	if err != nil {
		return nil, rqerr.NewProbeError("ffprobe frame sampling failed", err)
	}

	var result frameSample
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, rqerr.NewProbeError("failed to parse frame sample output", err)
	}

	return &result, nil
}

// SampleFrameTypes returns the picture-type sequence of a bounded window
// starting at startSecs. Sampling a window instead of scanning the whole
// file keeps analysis cost independent of input length.
func SampleFrameTypes(ctx context.Context, inputPath string, startSecs, windowSecs float64) ([]FrameType, error) {
	out, err := runFFprobeRaw(ctx,
		"-read_intervals", fmt.Sprintf("%.2f%%+%.2f", startSecs, windowSecs),
		"-select_streams", "v:0",
		"-show_frames",
		"-show_entries", "frame=pict_type",
		inputPath,
	)
	if err != nil {
		return nil, err
	}

	var types []FrameType
	for _, f := range out.Frames {
		if len(f.PictType) == 0 {
			continue
		}
		switch f.PictType[0] {
		case 'I', 'P', 'B':
			types = append(types, FrameType(f.PictType[0]))
		}
	}
	return types, nil
}

// FrameTypeStats summarizes a sampled picture-type sequence.
type FrameTypeStats struct {
	Total  int
	IRatio float64
	PRatio float64
	BRatio float64
}

// AnalyzeFrameTypes computes per-type ratios for a sampled sequence.
func AnalyzeFrameTypes(types []FrameType) FrameTypeStats {
	stats := FrameTypeStats{Total: len(types)}
	if stats.Total == 0 {
		return stats
	}
	var i, p, b int
	for _, t := range types {
		switch t {
		case FrameI:
			i++
		case FrameP:
			p++
		case FrameB:
			b++
		}
	}
	stats.IRatio = float64(i) / float64(stats.Total)
	stats.PRatio = float64(p) / float64(stats.Total)
	stats.BRatio = float64(b) / float64(stats.Total)
	return stats
}
