// Package ffprobe provides the typed media probing adapter around the
// external ffprobe binary.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	rqerr "github.com/jdhalbert/requant/internal/errors"
)

// MediaProbe contains the technical properties of an input file.
// It is immutable once created; one probe per input.
type MediaProbe struct {
	Width           int
	Height          int
	DurationSecs    float64
	FPS             float64
	CodecName       string
	BitrateBps      int64
	ColorPrimaries  string
	ColorTransfer   string
	ColorSpace      string
	IsHDR           bool
	TotalFrames     uint64 // 0 when the container does not report a frame count
	AudioStreams    int
	SubtitleStreams int
}

// FrameEstimate returns the total frame count, falling back to
// duration times fps when the container does not carry an exact count.
func (p *MediaProbe) FrameEstimate() uint64 {
	if p.TotalFrames > 0 {
		return p.TotalFrames
	}
	if p.DurationSecs > 0 && p.FPS > 0 {
		return uint64(p.DurationSecs * p.FPS)
	}
	return 0
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType      string `json:"codec_type"`
	CodecName      string `json:"codec_name"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	RFrameRate     string `json:"r_frame_rate"`
	AvgFrameRate   string `json:"avg_frame_rate"`
	NbFrames       string `json:"nb_frames"`
	BitRate        string `json:"bit_rate"`
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
}

// runFFprobe executes ffprobe and returns the parsed output.
func runFFprobe(ctx context.Context, args ...string) (*ffprobeOutput, error) {
	base := []string{"-v", "quiet", "-print_format", "json"}
	cmd := exec.CommandContext(ctx, "ffprobe", append(base, args...)...)

	output, err := cmd.Output()
	if err != nil {
		return nil, rqerr.NewProbeError("ffprobe failed", err)
	}

	var result ffprobeOutput
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, rqerr.NewProbeError("failed to parse ffprobe output", err)
	}

	return &result, nil
}

// Probe extracts the media properties of an input file. It fails with a
// probe error if the file is unreadable or carries no video stream.
func Probe(ctx context.Context, inputPath string) (*MediaProbe, error) {
	out, err := runFFprobe(ctx, "-show_format", "-show_streams", inputPath)
	if err != nil {
		return nil, err
	}

	var video *ffprobeStream
	audioCount := 0
	subtitleCount := 0
	for i := range out.Streams {
		switch out.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &out.Streams[i]
			}
		case "audio":
			audioCount++
		case "subtitle":
			subtitleCount++
		}
	}

	if video == nil {
		return nil, rqerr.NewProbeError(fmt.Sprintf("no video stream found in %s", inputPath), nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, rqerr.NewProbeError(fmt.Sprintf("invalid dimensions in %s: %dx%d", inputPath, video.Width, video.Height), nil)
	}

	probe := &MediaProbe{
		Width:           video.Width,
		Height:          video.Height,
		CodecName:       video.CodecName,
		ColorPrimaries:  video.ColorPrimaries,
		ColorTransfer:   video.ColorTransfer,
		ColorSpace:      video.ColorSpace,
		AudioStreams:    audioCount,
		SubtitleStreams: subtitleCount,
	}

	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			probe.DurationSecs = d
		}
	}
	if probe.DurationSecs <= 0 {
		return nil, rqerr.NewProbeError(fmt.Sprintf("no usable duration in %s", inputPath), nil)
	}

	probe.FPS = parseFrameRate(video.RFrameRate)
	if probe.FPS == 0 {
		probe.FPS = parseFrameRate(video.AvgFrameRate)
	}

	if video.NbFrames != "" {
		if frames, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil {
			probe.TotalFrames = frames
		}
	}

	if video.BitRate != "" {
		if br, err := strconv.ParseInt(video.BitRate, 10, 64); err == nil {
			probe.BitrateBps = br
		}
	}
	if probe.BitrateBps == 0 && out.Format.BitRate != "" {
		if br, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
			probe.BitrateBps = br
		}
	}

	probe.IsHDR = DetectHDR(probe.ColorPrimaries, probe.ColorTransfer, probe.ColorSpace)

	return probe, nil
}

// parseFrameRate parses an ffprobe rational frame rate like "24000/1001".
func parseFrameRate(rate string) float64 {
	if rate == "" || rate == "0/0" {
		return 0
	}
	parts := strings.Split(rate, "/")
	if len(parts) == 1 {
		if f, err := strconv.ParseFloat(parts[0], 64); err == nil {
			return f
		}
		return 0
	}
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// DetectHDR determines if content is HDR based on color metadata.
func DetectHDR(primaries, transfer, matrix string) bool {
	// BT.2020/BT.2100 primaries
	if containsCI(primaries, "bt2020") || containsCI(primaries, "bt.2020") || containsCI(primaries, "bt2100") {
		return true
	}

	// PQ or HLG transfer characteristics
	if containsCI(transfer, "pq") || containsCI(transfer, "smpte2084") || containsCI(transfer, "hlg") || containsCI(transfer, "arib-std-b67") {
		return true
	}

	if containsCI(matrix, "bt2020") || containsCI(matrix, "bt.2020") {
		return true
	}

	return false
}

// containsCI performs a case-insensitive substring check.
func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
