package progress

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffmpeg"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		name  string
		width int
		mode  config.EncodingMode
		score float64
		want  time.Duration
	}{
		{"baseline HD CRF", 1920, config.ModeCRF, 50, 1 * time.Second},
		{"1440p adds one", 2560, config.ModeCRF, 50, 2 * time.Second},
		{"4K adds two", 3840, config.ModeCRF, 50, 3 * time.Second},
		{"CBR adds one", 1920, config.ModeCBR, 50, 2 * time.Second},
		{"complex adds one", 1920, config.ModeCRF, 65, 2 * time.Second},
		{"very complex adds two", 1920, config.ModeCRF, 85, 3 * time.Second},
		{"clamped at five", 3840, config.ModeCBR, 95, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interval(tt.width, tt.mode, tt.score); got != tt.want {
				t.Errorf("Interval(%d, %s, %f) = %v, want %v",
					tt.width, tt.mode, tt.score, got, tt.want)
			}
		})
	}
}

func TestFractionPrefersFrameBased(t *testing.T) {
	sample := ffmpeg.ProgressSample{
		OutputTimeMicros: 30_000_000, // 30s of 120s = 0.25 time-based
		Frame:            1440,       // 1440 of 2880 = 0.5 frame-based
	}
	if got := Fraction(sample, 120, 2880); got != 0.5 {
		t.Errorf("Fraction = %f, want frame-based 0.5", got)
	}
}

func TestFractionFallsBackToTimeBased(t *testing.T) {
	// No frame estimate available.
	sample := ffmpeg.ProgressSample{OutputTimeMicros: 30_000_000}
	if got := Fraction(sample, 120, 0); got != 0.25 {
		t.Errorf("Fraction = %f, want time-based 0.25", got)
	}

	// Frame-based out of (0,1]: frame count exceeds the estimate.
	over := ffmpeg.ProgressSample{OutputTimeMicros: 30_000_000, Frame: 5000}
	if got := Fraction(over, 120, 2880); got != 0.25 {
		t.Errorf("Fraction = %f, want time-based fallback 0.25", got)
	}
}

func TestFractionClamped(t *testing.T) {
	sample := ffmpeg.ProgressSample{OutputTimeMicros: 500_000_000}
	if got := Fraction(sample, 120, 0); got != 1 {
		t.Errorf("Fraction = %f, want clamp to 1", got)
	}
	if got := Fraction(ffmpeg.ProgressSample{}, 0, 0); got != 0 {
		t.Errorf("Fraction of empty sample = %f, want 0", got)
	}
}

func TestBlendETAAveragesSignals(t *testing.T) {
	sample := ffmpeg.ProgressSample{
		OutputTimeMicros: 60_000_000, // 60s into a 120s source
		Frame:            1440,
		FPS:              48, // (2880-1440)/48 = 30s
		Speed:            2,  // (120-60)/2 = 30s
	}
	// progress extrapolation: elapsed 30 / 0.5 - 30 = 30s
	eta, ok := BlendETA(30, 0.5, sample, 120, 2880)
	if !ok {
		t.Fatal("expected a valid ETA")
	}
	if math.Abs(eta-30) > 1e-9 {
		t.Errorf("ETA = %f, want 30", eta)
	}
}

func TestBlendETADiscardsImplausibleSignals(t *testing.T) {
	// fps so low the frame signal exceeds 24h; the other signals survive.
	sample := ffmpeg.ProgressSample{
		OutputTimeMicros: 60_000_000,
		Frame:            10,
		FPS:              0.001,
		Speed:            2,
	}
	eta, ok := BlendETA(30, 0.5, sample, 120, 2880)
	if !ok {
		t.Fatal("expected remaining signals to produce an ETA")
	}
	if eta > maxETASecs {
		t.Errorf("ETA = %f exceeds the cutoff", eta)
	}

	// No usable signal at all.
	if _, ok := BlendETA(0, 0, ffmpeg.ProgressSample{}, 0, 0); ok {
		t.Error("expected no ETA with zero inputs")
	}
}

func TestProjectSize(t *testing.T) {
	if size, ok := ProjectSize(50_000_000, 0.5); !ok || size != 100_000_000 {
		t.Errorf("ProjectSize = %d, %v; want 100000000, true", size, ok)
	}

	// Below the floor the projection is withheld.
	if _, ok := ProjectSize(1000, 0.005); ok {
		t.Error("projection below the floor must be withheld")
	}
	if _, ok := ProjectSize(0, 0.5); ok {
		t.Error("zero bytes must not project")
	}
}

func TestMonitorTerminatesWhenFeedCloses(t *testing.T) {
	samples := make(chan ffmpeg.ProgressSample)
	close(samples)

	m := &Monitor{DurationSecs: 120, Interval: 10 * time.Millisecond}
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), samples, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not terminate after the feed closed")
	}
}

func TestMonitorReportsEstimates(t *testing.T) {
	samples := make(chan ffmpeg.ProgressSample, 1)
	samples <- ffmpeg.ProgressSample{
		OutputTimeMicros: 60_000_000,
		Frame:            1440,
		FPS:              48,
		Speed:            2,
		TotalSizeBytes:   50_000_000,
	}

	m := &Monitor{DurationSecs: 120, TotalFrames: 2880, Interval: 10 * time.Millisecond}

	estimates := make(chan Estimate, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx, samples, func(e Estimate) {
		if e.Fraction == 0 {
			// The first tick can race the sample delivery.
			return
		}
		select {
		case estimates <- e:
		default:
		}
	})

	select {
	case est := <-estimates:
		if est.Fraction != 0.5 {
			t.Errorf("Fraction = %f, want 0.5", est.Fraction)
		}
		if !est.ETAValid {
			t.Error("expected a valid ETA")
		}
		if est.EstimatedFinalSizeBytes != 100_000_000 {
			t.Errorf("size projection = %d, want 100000000", est.EstimatedFinalSizeBytes)
		}
		if est.Stalled {
			t.Error("fresh progress must not read as stalled")
		}
	case <-time.After(time.Second):
		t.Fatal("no estimate published")
	}
	cancel()
	close(samples)
}

func TestMonitorCancellation(t *testing.T) {
	samples := make(chan ffmpeg.ProgressSample)
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{DurationSecs: 120, Interval: 10 * time.Millisecond}
	done := make(chan struct{})
	go func() {
		m.Run(ctx, samples, nil)
		close(done)
	}()

	cancel()
	close(samples)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not honor cancellation")
	}
}

func TestMonitorDrainsFeedAfterCancellation(t *testing.T) {
	samples := make(chan ffmpeg.ProgressSample)
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{DurationSecs: 120, Interval: 10 * time.Millisecond}
	done := make(chan struct{})
	go func() {
		m.Run(ctx, samples, nil)
		close(done)
	}()

	cancel()
	// A killed encoder still flushes its buffered progress blocks before
	// the pipe reaches EOF; every send must be accepted.
	for i := 0; i < 20; i++ {
		select {
		case samples <- ffmpeg.ProgressSample{Frame: int64(i)}:
		case <-time.After(time.Second):
			t.Fatal("monitor stopped consuming the feed after cancellation")
		}
	}
	close(samples)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not terminate after the feed closed")
	}
}

func TestMonitorPublishesClosingEstimate(t *testing.T) {
	samples := make(chan ffmpeg.ProgressSample, 1)
	samples <- ffmpeg.ProgressSample{
		Frame:          2880,
		FPS:            48,
		Speed:          2,
		TotalSizeBytes: 90_000_000,
		Done:           true,
	}
	close(samples)

	// The interval never ticks; only the closing estimate can report.
	m := &Monitor{DurationSecs: 120, TotalFrames: 2880, Interval: time.Hour}
	var got []Estimate
	m.Run(context.Background(), samples, func(e Estimate) {
		got = append(got, e)
	})

	if len(got) == 0 {
		t.Fatal("no closing estimate published")
	}
	last := got[len(got)-1]
	if last.Fraction != 1 {
		t.Errorf("closing Fraction = %f, want 1", last.Fraction)
	}
	if last.EstimatedFinalSizeBytes != 90_000_000 {
		t.Errorf("closing size = %d, want the final byte count", last.EstimatedFinalSizeBytes)
	}
}
