package ffmpeg

import (
	"fmt"

	"github.com/jdhalbert/requant/internal/config"
)

// nullSink is where analysis-pass output goes. ffmpeg's null muxer
// accepts any target name on every platform.
const nullSink = "-"

// BuildPassArgs renders the full ffmpeg argument list for one pass.
//
// An analysis pass encodes video only at a faster preset, writes the
// stats file, and discards its output. The final pass carries all
// streams through: video re-encoded, audio and subtitles copied,
// chapters mapped.
func BuildPassArgs(p EncodeParams, pass Pass) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", p.InputPath,
		"-progress", "pipe:1",
	}

	if pass.Purpose == PurposeAnalysis {
		args = append(args, "-map", "0:v:0", "-an", "-sn")
	} else {
		args = append(args,
			"-map", "0",
			"-c:a", "copy",
			"-c:s", "copy",
			"-map_chapters", "0",
		)
	}

	if p.Filters != nil && !p.Filters.IsEmpty() {
		args = append(args, "-vf", p.Filters.Build())
	}

	args = append(args, "-c:v", "libx265", "-preset", pass.Preset)
	args = append(args, rateControlArgs(p, pass)...)

	if x265 := formatX265Params(p.EncoderParams); x265 != "" {
		args = append(args, "-x265-params", x265)
	}

	if pass.Purpose == PurposeAnalysis {
		args = append(args, "-f", "null", nullSink)
	} else {
		args = append(args, p.OutputPath)
	}

	return args
}

// rateControlArgs renders the mode-specific rate-control flags.
func rateControlArgs(p EncodeParams, pass Pass) []string {
	switch p.Mode {
	case config.ModeCRF:
		return []string{"-crf", trimFloat(p.CRF)}

	case config.ModeABR:
		return append(passArgs(pass),
			"-b:v", kbps(p.BitrateKbps),
		)

	case config.ModeCBR:
		// Pinning minrate and maxrate to the target with a constrained
		// VBV buffer is what makes the stream constant-bitrate.
		return append(passArgs(pass),
			"-b:v", kbps(p.BitrateKbps),
			"-minrate", kbps(p.BitrateKbps),
			"-maxrate", kbps(p.BitrateKbps),
			"-bufsize", kbps(VBVBufsizeKbps(p.BitrateKbps)),
		)
	}
	return nil
}

// passArgs renders the two-pass bookkeeping flags.
func passArgs(pass Pass) []string {
	args := []string{"-pass", fmt.Sprintf("%d", pass.Index)}
	if pass.StatsFile != "" {
		args = append(args, "-passlogfile", pass.StatsFile)
	}
	return args
}

func kbps(v int) string {
	return fmt.Sprintf("%dk", v)
}

// trimFloat renders a CRF without trailing zeros so whole values read
// as integers in logs and process listings.
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
