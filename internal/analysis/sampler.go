package analysis

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/jdhalbert/requant/internal/ffprobe"
)

// Sampler abstracts the frame-level measurements the engine needs.
// The production implementation shells out to ffmpeg/ffprobe; tests
// substitute canned measurements.
type Sampler interface {
	// FrameTypes returns the picture-type sequence of a bounded window.
	FrameTypes(ctx context.Context, inputPath string, startSecs, windowSecs float64) ([]ffprobe.FrameType, error)

	// SceneChanges counts scene cuts above threshold within a window.
	SceneChanges(ctx context.Context, inputPath string, startSecs, windowSecs, threshold float64) (int, error)

	// SignalWindow measures luma statistics over a short frame window.
	SignalWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (SignalWindow, error)

	// EdgeWindow measures mean edge energy over a short frame window.
	EdgeWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (float64, error)

	// GrainWindow measures noise statistics over a short frame window.
	GrainWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (GrainWindow, error)
}

// SignalWindow holds averaged signalstats measurements for a window.
type SignalWindow struct {
	LumaMean  float64 // mean YAVG, 0-255
	DiffMean  float64 // mean YDIF (inter-frame luma difference)
	RangeMean float64 // mean YHIGH-YLOW spread, 0-255
}

// GrainWindow holds averaged noise measurements for a window.
type GrainWindow struct {
	NoiseLSB  float64 // bitplanenoise LSB plane value, 0-1
	NoisePln2 float64 // bitplanenoise second plane value, 0-1
	LumaMean  float64 // mean YAVG, for dark-scene detection
	RangeMean float64 // mean YHIGH-YLOW spread
}

// FFmpegSampler implements Sampler with ffmpeg/ffprobe subprocesses.
type FFmpegSampler struct{}

var (
	metaYAVG   = regexp.MustCompile(`lavfi\.signalstats\.YAVG=([\d.]+)`)
	metaYDIF   = regexp.MustCompile(`lavfi\.signalstats\.YDIF=([\d.]+)`)
	metaYLOW   = regexp.MustCompile(`lavfi\.signalstats\.YLOW=([\d.]+)`)
	metaYHIGH  = regexp.MustCompile(`lavfi\.signalstats\.YHIGH=([\d.]+)`)
	metaNoise1 = regexp.MustCompile(`lavfi\.bitplanenoise\.0\.1=([\d.]+)`)
	metaNoise2 = regexp.MustCompile(`lavfi\.bitplanenoise\.0\.2=([\d.]+)`)
	ptsTimeRe  = regexp.MustCompile(`pts_time:[\d.]+`)
)

// FrameTypes delegates to the ffprobe adapter.
func (FFmpegSampler) FrameTypes(ctx context.Context, inputPath string, startSecs, windowSecs float64) ([]ffprobe.FrameType, error) {
	return ffprobe.SampleFrameTypes(ctx, inputPath, startSecs, windowSecs)
}

// SceneChanges runs ffmpeg's scene filter over a bounded window and counts
// the frames it selects.
func (FFmpegSampler) SceneChanges(ctx context.Context, inputPath string, startSecs, windowSecs, threshold float64) (int, error) {
	lines, err := runFilterWindow(ctx, inputPath, startSecs,
		"-t", fmt.Sprintf("%.2f", windowSecs),
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold),
	)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range lines {
		if ptsTimeRe.MatchString(line) {
			count++
		}
	}
	return count, nil
}

// SignalWindow measures plain signalstats over a short window.
func (FFmpegSampler) SignalWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (SignalWindow, error) {
	lines, err := runFilterWindow(ctx, inputPath, startSecs,
		"-frames:v", strconv.Itoa(frames),
		"-vf", "signalstats,metadata=print",
	)
	if err != nil {
		return SignalWindow{}, err
	}

	yavg := meanMatches(lines, metaYAVG)
	ydif := meanMatches(lines, metaYDIF)
	ylow := meanMatches(lines, metaYLOW)
	yhigh := meanMatches(lines, metaYHIGH)

	return SignalWindow{
		LumaMean:  yavg,
		DiffMean:  ydif,
		RangeMean: yhigh - ylow,
	}, nil
}

// EdgeWindow measures mean luma of an edge-filtered window. Sobel output is
// near-black on flat content, so its mean luma is a usable edge-density proxy.
func (FFmpegSampler) EdgeWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (float64, error) {
	lines, err := runFilterWindow(ctx, inputPath, startSecs,
		"-frames:v", strconv.Itoa(frames),
		"-vf", "sobel,signalstats,metadata=print",
	)
	if err != nil {
		return 0, err
	}
	return meanMatches(lines, metaYAVG), nil
}

// GrainWindow measures bit-plane noise plus luma statistics over a window.
func (FFmpegSampler) GrainWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (GrainWindow, error) {
	lines, err := runFilterWindow(ctx, inputPath, startSecs,
		"-frames:v", strconv.Itoa(frames),
		"-vf", "bitplanenoise,signalstats,metadata=print",
	)
	if err != nil {
		return GrainWindow{}, err
	}

	return GrainWindow{
		NoiseLSB:  meanMatches(lines, metaNoise1),
		NoisePln2: meanMatches(lines, metaNoise2),
		LumaMean:  meanMatches(lines, metaYAVG),
		RangeMean: meanMatches(lines, metaYHIGH) - meanMatches(lines, metaYLOW),
	}, nil
}

// runFilterWindow runs ffmpeg with a null muxer over a seeked window and
// returns its stderr lines, where filter metadata is printed.
func runFilterWindow(ctx context.Context, inputPath string, startSecs float64, extra ...string) ([]string, error) {
	args := []string{
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startSecs),
		"-i", inputPath,
		"-an", "-sn",
	}
	args = append(args, extra...)
	args = append(args, "-f", "null", "-")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	_ = cmd.Wait()

	return lines, nil
}

// meanMatches averages the first capture group of re across all lines.
func meanMatches(lines []string, re *regexp.Regexp) float64 {
	var sum float64
	var n int
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
