// Package progress estimates encode completion, ETA, and final output
// size from the encoder's progress feed.
package progress

import (
	"context"
	"math"
	"time"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffmpeg"
)

const (
	// maxETASecs discards implausible ETA signals. An estimate past a
	// day means the inputs are garbage, not that the encode is slow.
	maxETASecs = 24 * 60 * 60

	// stallWindow is how long the progress fraction may sit unchanged
	// before the ETA is considered stale. The subprocess is never
	// cancelled for stalling; slow scenes legitimately pause the feed.
	stallWindow = 10 * time.Second

	// sizeProjectionFloor is the minimum fraction before a final-size
	// projection is worth publishing.
	sizeProjectionFloor = 0.01
)

// Estimate is one recomputed snapshot of encode progress. Estimates are
// derived per tick and never persisted.
type Estimate struct {
	Fraction float64 // completion in [0,1]

	ETASecs  float64
	ETAValid bool // false when no reliable signal or the feed stalled

	EstimatedFinalSizeBytes int64 // 0 until the projection floor is reached

	FPS     float64
	Speed   float64
	Stalled bool
}

// Interval computes the adaptive poll interval for a pass. Larger frames
// and heavier rate control produce slower feedback, so ticks stretch out
// instead of spamming identical estimates.
func Interval(width int, mode config.EncodingMode, score float64) time.Duration {
	secs := 1
	switch {
	case width >= config.UHDWidthThreshold:
		secs += 2
	case width >= config.QHDWidthThreshold:
		secs += 1
	}
	if mode == config.ModeCBR {
		secs++
	}
	switch {
	case score >= 80:
		secs += 2
	case score >= 60:
		secs += 1
	}
	if secs > 5 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// Fraction computes completion from a progress sample using two
// independent estimators: output time against total duration, and frames
// encoded against the frame estimate. The frame-based value is preferred
// whenever it lies in (0,1].
func Fraction(sample ffmpeg.ProgressSample, durationSecs float64, totalFrames int64) float64 {
	var timeBased float64
	if durationSecs > 0 {
		timeBased = sample.OutputSecs() / durationSecs
	}

	if totalFrames > 0 {
		frameBased := float64(sample.Frame) / float64(totalFrames)
		if frameBased > 0 && frameBased <= 1 {
			return frameBased
		}
	}

	return math.Min(math.Max(timeBased, 0), 1)
}

// BlendETA combines three ETA signals: progress extrapolation from
// elapsed wall time, frames remaining over instantaneous fps, and time
// remaining corrected by the realtime speed multiplier. Signals past the
// 24h cutoff are discarded; the result is the mean of what survives.
func BlendETA(elapsedSecs, fraction float64, sample ffmpeg.ProgressSample, durationSecs float64, totalFrames int64) (float64, bool) {
	var signals []float64

	if fraction > 0 && elapsedSecs > 0 {
		signals = append(signals, elapsedSecs/fraction-elapsedSecs)
	}

	if sample.FPS > 0 && totalFrames > 0 && sample.Frame < totalFrames {
		signals = append(signals, float64(totalFrames-sample.Frame)/sample.FPS)
	}

	if sample.Speed > 0 && durationSecs > 0 {
		remaining := durationSecs - sample.OutputSecs()
		if remaining > 0 {
			signals = append(signals, remaining/sample.Speed)
		}
	}

	var sum float64
	n := 0
	for _, s := range signals {
		if s >= 0 && s <= maxETASecs {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ProjectSize extrapolates the final output size from bytes written so
// far. Projections below the progress floor are noise and withheld.
func ProjectSize(bytesWritten int64, fraction float64) (int64, bool) {
	if fraction <= sizeProjectionFloor || bytesWritten <= 0 {
		return 0, false
	}
	return int64(float64(bytesWritten) / fraction), true
}

// Monitor consumes one pass's progress feed and publishes estimates at
// the adaptive interval. One monitor serves exactly one pass.
type Monitor struct {
	DurationSecs float64
	TotalFrames  int64 // frame estimate; 0 disables frame-based signals
	Interval     time.Duration
}

// Run consumes samples until the feed closes, calling report once per
// tick with a fresh estimate. It never cancels the pass; a stalled feed
// only suppresses the ETA. On cancellation Run stops estimating but
// drains the feed to its close so the producer is never blocked.
func (m *Monitor) Run(ctx context.Context, samples <-chan ffmpeg.ProgressSample, report func(Estimate)) {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	var latest ffmpeg.ProgressSample
	seen := false
	lastFraction := -1.0
	lastChange := start

	for {
		select {
		case <-ctx.Done():
			// The executor keeps flushing the killed subprocess's buffered
			// progress blocks until its pipe reaches EOF; consume the rest
			// of the feed so those sends never block.
			for range samples {
			}
			return

		case sample, ok := <-samples:
			if !ok {
				if seen && report != nil {
					report(m.closingEstimate(latest))
				}
				return
			}
			latest = sample
			seen = true

		case now := <-ticker.C:
			fraction := Fraction(latest, m.DurationSecs, m.TotalFrames)
			if fraction != lastFraction {
				lastFraction = fraction
				lastChange = now
			}
			stalled := now.Sub(lastChange) >= stallWindow

			est := Estimate{
				Fraction: fraction,
				FPS:      latest.FPS,
				Speed:    latest.Speed,
				Stalled:  stalled,
			}
			if !stalled {
				est.ETASecs, est.ETAValid = BlendETA(
					now.Sub(start).Seconds(), fraction, latest, m.DurationSecs, m.TotalFrames)
			}
			if size, ok := ProjectSize(latest.TotalSizeBytes, fraction); ok {
				est.EstimatedFinalSizeBytes = size
			}

			if report != nil {
				report(est)
			}
		}
	}
}

// closingEstimate is the snapshot published when the feed ends, so the
// reported progress lands on the final sample instead of the last tick.
func (m *Monitor) closingEstimate(latest ffmpeg.ProgressSample) Estimate {
	fraction := Fraction(latest, m.DurationSecs, m.TotalFrames)
	if latest.Done {
		fraction = 1
	}
	est := Estimate{Fraction: fraction, FPS: latest.FPS, Speed: latest.Speed}
	if size, ok := ProjectSize(latest.TotalSizeBytes, fraction); ok {
		est.EstimatedFinalSizeBytes = size
	}
	return est
}
