// Package crop detects black bars with multi-sample temporal voting.
package crop

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/jdhalbert/requant/internal/ffprobe"
)

// Detection constants
const (
	// thresholdSDR is the cropdetect black level for SDR content.
	thresholdSDR = 16

	// thresholdHDR is the cropdetect black level for HDR content. Black
	// levels are not pure black under HDR transfer curves.
	thresholdHDR = 100

	// edgeSkipSecs is skipped from the true start and end to avoid
	// intros, studio logos, and credits.
	edgeSkipSecs = 60.0

	// sampleFrames is the number of frames analyzed per sample point.
	sampleFrames = 10

	// cropRound is the rounding value for the cropdetect filter.
	cropRound = 2
)

// Region is an accepted crop rectangle.
type Region struct {
	Width   int
	Height  int
	XOffset int
	YOffset int
}

// Filter renders the region as an ffmpeg crop filter.
func (r Region) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.XOffset, r.YOffset)
}

// String renders the region in w:h:x:y form.
func (r Region) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", r.Width, r.Height, r.XOffset, r.YOffset)
}

// Result contains the outcome of crop detection.
type Result struct {
	Region   *Region // nil when the source stays uncropped
	Required bool
	Manual   bool   // a manual override bypassed detection
	Message  string // human-readable summary
	Samples  int    // sample points that produced a candidate
}

// Options control detection behavior.
type Options struct {
	MinPixelDelta int // minimum combined pixel delta to accept a crop
	Disabled      bool
}

var cropRegex = regexp.MustCompile(`crop=(\d+):(\d+):(\d+):(\d+)`)

// Detect performs multi-sample crop detection on an input. Three temporal
// samples vote; the modal exact rectangle wins. Detection failures are
// never fatal: the source is treated as uncropped.
func Detect(ctx context.Context, inputPath string, probe *ffprobe.MediaProbe, opts Options) Result {
	if opts.Disabled {
		return Result{Message: "Skipped"}
	}

	threshold := thresholdSDR
	if probe.IsHDR {
		threshold = thresholdHDR
	}

	counts := make(map[Region]int)
	produced := 0
	for _, pos := range samplePositions(probe.DurationSecs) {
		region, ok := sampleAt(ctx, inputPath, pos, threshold)
		if !ok {
			continue
		}
		counts[region]++
		produced++
	}

	if produced == 0 {
		return Result{Message: "No crop signal"}
	}

	// Modal rectangle across samples, not an average: a single off
	// sample (dark scene, scene with letterboxed inserts) must not
	// skew the result.
	winner := modalRegion(counts)

	if !Accept(probe.Width, probe.Height, winner, opts.MinPixelDelta) {
		return Result{
			Message: "Crop below threshold",
			Samples: produced,
		}
	}

	return Result{
		Region:   &winner,
		Required: true,
		Message:  "Black bars detected",
		Samples:  produced,
	}
}

// Manual returns a result carrying a caller-supplied crop. Manual crops
// always win and skip detection entirely.
func Manual(w, h, x, y int) Result {
	return Result{
		Region:   &Region{Width: w, Height: h, XOffset: x, YOffset: y},
		Required: true,
		Manual:   true,
		Message:  "Manual crop",
	}
}

// Accept applies the acceptance rule: the combined pixel delta must reach
// the minimum threshold OR exceed 1% of the combined source dimensions.
func Accept(origW, origH int, r Region, minPixelDelta int) bool {
	delta := (origW - r.Width) + (origH - r.Height)
	if delta <= 0 {
		return false
	}
	if delta >= minPixelDelta {
		return true
	}
	return float64(delta) > float64(origW+origH)*0.01
}

// samplePositions returns the three sample timestamps: near start, middle,
// and near end, each skipping the edge margin. Short inputs collapse the
// margin proportionally instead of sampling past end-of-file.
func samplePositions(durationSecs float64) []float64 {
	skip := edgeSkipSecs
	if durationSecs < edgeSkipSecs*3 {
		skip = durationSecs * 0.1
	}
	return []float64{
		skip,
		durationSecs / 2,
		durationSecs - skip - float64(sampleFrames),
	}
}

// modalRegion returns the most frequent rectangle. Ties break toward the
// larger remaining area so borderline votes prefer keeping pixels; the
// offsets order any residual tie so the result never depends on map
// iteration order.
func modalRegion(counts map[Region]int) Region {
	var winner Region
	best := -1
	for region, count := range counts {
		if count > best || (count == best && regionLess(winner, region)) {
			winner = region
			best = count
		}
	}
	return winner
}

// regionLess is a total order over regions: area first, then offsets.
func regionLess(a, b Region) bool {
	if aArea, bArea := a.Width*a.Height, b.Width*b.Height; aArea != bArea {
		return aArea < bArea
	}
	if a.YOffset != b.YOffset {
		return a.YOffset < b.YOffset
	}
	if a.XOffset != b.XOffset {
		return a.XOffset < b.XOffset
	}
	if a.Width != b.Width {
		return a.Width < b.Width
	}
	return a.Height < b.Height
}

// sampleAt runs cropdetect at one position and returns its dominant
// candidate rectangle.
func sampleAt(ctx context.Context, inputPath string, startSecs float64, threshold int) (Region, bool) {
	if startSecs < 0 {
		startSecs = 0
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startSecs),
		"-i", inputPath,
		"-frames:v", strconv.Itoa(sampleFrames),
		"-vf", fmt.Sprintf("cropdetect=limit=%d:round=%d:reset=1", threshold, cropRound),
		"-an", "-sn",
		"-f", "null",
		"-",
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Region{}, false
	}
	if err := cmd.Start(); err != nil {
		return Region{}, false
	}

	counts := make(map[Region]int)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if region, ok := parseCropLine(scanner.Text()); ok {
			counts[region]++
		}
	}
	_ = cmd.Wait()

	if len(counts) == 0 {
		return Region{}, false
	}
	return modalRegion(counts), true
}

// parseCropLine extracts a rectangle from a cropdetect output line.
func parseCropLine(line string) (Region, bool) {
	if !strings.Contains(line, "crop=") {
		return Region{}, false
	}
	m := cropRegex.FindStringSubmatch(line)
	if len(m) != 5 {
		return Region{}, false
	}
	vals := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Region{}, false
		}
		vals[i] = v
	}
	if vals[0] <= 0 || vals[1] <= 0 {
		return Region{}, false
	}
	return Region{Width: vals[0], Height: vals[1], XOffset: vals[2], YOffset: vals[3]}, true
}
