// Package analysis computes multi-signal complexity scores and resolves
// content-type classifications from sampled source measurements.
package analysis

import (
	"context"
	"math"

	"github.com/jdhalbert/requant/internal/ffprobe"
	"github.com/jdhalbert/requant/internal/logging"
)

// Analysis window constants. All measurements sample bounded windows so
// analysis cost stays independent of input length.
const (
	// signalWindowFrames is the frame count for signalstats/edge windows.
	signalWindowFrames = 24

	// frameTypeWindowSecs is the window for frame-type sampling.
	frameTypeWindowSecs = 20.0

	// sceneWindowSecs is the window for scene-cut counting.
	sceneWindowSecs = 120.0

	// sceneThreshold is the scene-change detection threshold.
	sceneThreshold = 0.4

	// grainFrames is the frame count per grain sample point.
	grainFrames = 12

	// lowGrainFloor triggers the dark-scene boost pass when the averaged
	// grain falls below it. Dark regions often hide grain that flat-scene
	// sampling misses.
	lowGrainFloor = 5.0

	// MinScore and MaxScore bound the composite complexity score.
	MinScore = 10.0
	MaxScore = 100.0
)

// grainSamplePositions are the duration-relative grain extraction points.
var grainSamplePositions = []float64{0.10, 0.25, 0.50, 0.75, 0.90}

// ComplexitySignals holds the independent measurements feeding the score.
type ComplexitySignals struct {
	SpatialInfo     float64 // edge density, 0-100
	TemporalInfo    float64 // inter-frame activity, 0-100
	SceneChangeRate float64 // cuts per minute
	FrameComplexity float64 // I-frame ratio scaled to 0-100
	GrainLevel      float64 // noise composite, roughly 0-30
	TextureScore    float64 // luma spread proxy, 0-100
	IsHDR           bool
}

// HasSignal reports whether any measurement produced a usable value.
// All-zero signals mean every sample failed, not a genuinely flat source.
func (s ComplexitySignals) HasSignal() bool {
	return s.SpatialInfo != 0 || s.TemporalInfo != 0 || s.SceneChangeRate != 0 ||
		s.FrameComplexity != 0 || s.GrainLevel != 0 || s.TextureScore != 0
}

// Score computes the weighted composite complexity score, clamped to
// [MinScore, MaxScore]. The grain weight is deliberately the largest:
// grain is the strongest driver of required bitrate.
func Score(s ComplexitySignals) float64 {
	score := 0.25*s.SpatialInfo +
		0.35*s.TemporalInfo +
		1.5*s.SceneChangeRate +
		8*s.GrainLevel +
		0.3*s.TextureScore +
		0.25*s.FrameComplexity

	return clamp(score, MinScore, MaxScore)
}

// Engine samples a source and derives its complexity signals.
type Engine struct {
	sampler Sampler
	logger  *logging.Logger
}

// NewEngine creates an analysis engine backed by the given sampler.
func NewEngine(sampler Sampler, logger *logging.Logger) *Engine {
	if sampler == nil {
		sampler = FFmpegSampler{}
	}
	return &Engine{sampler: sampler, logger: logger}
}

// Analyze computes the complexity signals for an input. Individual signal
// failures degrade to zero rather than failing the run; only a total lack
// of signal is reported by the caller.
func (e *Engine) Analyze(ctx context.Context, inputPath string, probe *ffprobe.MediaProbe) ComplexitySignals {
	signals := ComplexitySignals{IsHDR: probe.IsHDR}
	dur := probe.DurationSecs

	// Spatial detail and texture from a mid-point window.
	if win, err := e.sampler.SignalWindow(ctx, inputPath, dur*0.30, signalWindowFrames); err == nil {
		signals.TemporalInfo = clamp(win.DiffMean*4, 0, 100)
		signals.TextureScore = clamp(win.RangeMean/255*100, 0, 100)
	} else {
		e.logger.Warn("signal window sampling failed: %v", err)
	}

	if edge, err := e.sampler.EdgeWindow(ctx, inputPath, dur*0.30, signalWindowFrames); err == nil {
		signals.SpatialInfo = clamp(edge/255*100*2, 0, 100)
	} else {
		e.logger.Warn("edge window sampling failed: %v", err)
	}

	// Frame-type mix from a sampled window.
	if types, err := e.sampler.FrameTypes(ctx, inputPath, dur*0.40, frameTypeWindowSecs); err == nil {
		stats := ffprobe.AnalyzeFrameTypes(types)
		signals.FrameComplexity = stats.IRatio * 100
	} else {
		e.logger.Warn("frame type sampling failed: %v", err)
	}

	// Scene-cut rate over a fixed window.
	window := math.Min(sceneWindowSecs, dur*0.8)
	if window > 1 {
		if cuts, err := e.sampler.SceneChanges(ctx, inputPath, dur*0.10, window, sceneThreshold); err == nil {
			signals.SceneChangeRate = float64(cuts) / (window / 60)
		} else {
			e.logger.Warn("scene sampling failed: %v", err)
		}
	}

	signals.GrainLevel = e.measureGrain(ctx, inputPath, dur)

	return signals
}

// measureGrain averages grain composites from five duration-relative
// sample points, with a dark-scene boost pass when the average is low.
func (e *Engine) measureGrain(ctx context.Context, inputPath string, durationSecs float64) float64 {
	var composites []float64
	var darkestPos float64
	darkestLuma := math.MaxFloat64

	for _, pos := range grainSamplePositions {
		win, err := e.sampler.GrainWindow(ctx, inputPath, durationSecs*pos, grainFrames)
		if err != nil {
			e.logger.Warn("grain sample at %.0f%% failed: %v", pos*100, err)
			continue
		}
		composites = append(composites, GrainComposite(win))
		if win.LumaMean < darkestLuma {
			darkestLuma = win.LumaMean
			darkestPos = pos
		}
	}

	if len(composites) == 0 {
		return 0
	}

	avg := mean(composites)
	if avg >= lowGrainFloor {
		return avg
	}

	// Dark-scene boost: resample near the darkest window with a longer
	// read. The boost point is duration-relative so short inputs never
	// sample past end-of-file.
	boostPos := clamp(darkestPos+0.02, 0.05, 0.95)
	win, err := e.sampler.GrainWindow(ctx, inputPath, durationSecs*boostPos, grainFrames*2)
	if err != nil {
		return avg
	}
	return math.Max(avg, GrainComposite(win))
}

// GrainComposite folds a noise window into a single grain level. The LSB
// bit-plane noise dominates; the second plane and luma spread add texture
// sensitivity. Pure function, deterministic.
func GrainComposite(w GrainWindow) float64 {
	composite := w.NoiseLSB*30 + w.NoisePln2*10 + w.RangeMean/255*5
	if composite < 0 {
		return 0
	}
	return composite
}

// NeutralSignals returns signals that score exactly the neutral 50,
// used when complexity analysis is disabled.
func NeutralSignals(isHDR bool) ComplexitySignals {
	// 8*5 = 40 from grain plus 0.35*20 + 0.25*12 = 10 from motion/edges.
	return ComplexitySignals{
		SpatialInfo:  12,
		TemporalInfo: 20,
		GrainLevel:   5,
		IsHDR:        isHDR,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
