package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jdhalbert/requant/internal/ffprobe"
)

func TestScoreClampsToBounds(t *testing.T) {
	if got := Score(ComplexitySignals{}); got != MinScore {
		t.Errorf("zero signals score = %f, want the %f floor", got, MinScore)
	}

	loud := ComplexitySignals{
		SpatialInfo:     100,
		TemporalInfo:    100,
		SceneChangeRate: 30,
		FrameComplexity: 100,
		GrainLevel:      30,
		TextureScore:    100,
	}
	if got := Score(loud); got != MaxScore {
		t.Errorf("saturated signals score = %f, want the %f ceiling", got, MaxScore)
	}
}

func TestScoreNeutralSignalsIsFifty(t *testing.T) {
	if got := Score(NeutralSignals(false)); got != 50 {
		t.Errorf("neutral score = %f, want 50", got)
	}
	if got := Score(NeutralSignals(true)); got != 50 {
		t.Errorf("HDR neutral score = %f, want 50", got)
	}
	if !NeutralSignals(true).IsHDR {
		t.Error("neutral signals must preserve the HDR flag")
	}
}

func TestScoreGrainDominates(t *testing.T) {
	grainy := Score(ComplexitySignals{GrainLevel: 10})
	busy := Score(ComplexitySignals{TemporalInfo: 50, SpatialInfo: 50})
	if grainy <= busy {
		t.Errorf("grain 10 scored %f, motion/edges 50 scored %f; grain must weigh more", grainy, busy)
	}
}

func TestGrainComposite(t *testing.T) {
	w := GrainWindow{NoiseLSB: 0.5, NoisePln2: 0.2, RangeMean: 102}
	want := 0.5*30 + 0.2*10 + 102.0/255*5
	if got := GrainComposite(w); math.Abs(got-want) > 1e-9 {
		t.Errorf("GrainComposite = %f, want %f", got, want)
	}

	if got := GrainComposite(GrainWindow{}); got != 0 {
		t.Errorf("empty window composite = %f, want 0", got)
	}
}

func TestGrainCompositeDeterministic(t *testing.T) {
	w := GrainWindow{NoiseLSB: 0.31, NoisePln2: 0.07, LumaMean: 80, RangeMean: 140}
	first := GrainComposite(w)
	for i := 0; i < 10; i++ {
		if GrainComposite(w) != first {
			t.Fatal("GrainComposite must be deterministic for identical input")
		}
	}
}

// fakeSampler returns canned measurements and records grain calls.
type fakeSampler struct {
	signal   SignalWindow
	edge     float64
	types    []ffprobe.FrameType
	cuts     int
	grain    GrainWindow
	grainErr error

	grainCalls []grainCall
}

type grainCall struct {
	startSecs float64
	frames    int
}

func (f *fakeSampler) FrameTypes(ctx context.Context, inputPath string, startSecs, windowSecs float64) ([]ffprobe.FrameType, error) {
	return f.types, nil
}

func (f *fakeSampler) SceneChanges(ctx context.Context, inputPath string, startSecs, windowSecs, threshold float64) (int, error) {
	return f.cuts, nil
}

func (f *fakeSampler) SignalWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (SignalWindow, error) {
	return f.signal, nil
}

func (f *fakeSampler) EdgeWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (float64, error) {
	return f.edge, nil
}

func (f *fakeSampler) GrainWindow(ctx context.Context, inputPath string, startSecs float64, frames int) (GrainWindow, error) {
	f.grainCalls = append(f.grainCalls, grainCall{startSecs: startSecs, frames: frames})
	return f.grain, f.grainErr
}

func probeFor(durationSecs float64) *ffprobe.MediaProbe {
	return &ffprobe.MediaProbe{
		Width:        1920,
		Height:       1080,
		DurationSecs: durationSecs,
		FPS:          24,
	}
}

func TestEngineAnalyzeSignals(t *testing.T) {
	sampler := &fakeSampler{
		signal: SignalWindow{DiffMean: 5, RangeMean: 127.5},
		edge:   51,
		types:  []ffprobe.FrameType{ffprobe.FrameI, ffprobe.FrameP, ffprobe.FrameP, ffprobe.FrameP},
		cuts:   12,
		grain:  GrainWindow{NoiseLSB: 0.3, LumaMean: 100},
	}

	engine := NewEngine(sampler, nil)
	signals := engine.Analyze(context.Background(), "in.mkv", probeFor(600))

	if got := signals.TemporalInfo; got != 20 {
		t.Errorf("TemporalInfo = %f, want 20 (DiffMean 5 * 4)", got)
	}
	if got := signals.TextureScore; got != 50 {
		t.Errorf("TextureScore = %f, want 50 (range 127.5 of 255)", got)
	}
	if got := signals.SpatialInfo; got != 40 {
		t.Errorf("SpatialInfo = %f, want 40 (edge 51 of 255, doubled)", got)
	}
	if got := signals.FrameComplexity; got != 25 {
		t.Errorf("FrameComplexity = %f, want 25 (1 I-frame of 4)", got)
	}
	// 12 cuts over a 120s window is 6 per minute.
	if got := signals.SceneChangeRate; got != 6 {
		t.Errorf("SceneChangeRate = %f, want 6", got)
	}
}

func TestEngineGrainAveragesSamplePoints(t *testing.T) {
	sampler := &fakeSampler{
		grain: GrainWindow{NoiseLSB: 0.4, LumaMean: 100},
	}

	engine := NewEngine(sampler, nil)
	signals := engine.Analyze(context.Background(), "in.mkv", probeFor(1000))

	// All five windows report composite 12, so no boost pass runs.
	if got := signals.GrainLevel; got != 12 {
		t.Errorf("GrainLevel = %f, want 12", got)
	}
	if len(sampler.grainCalls) != 5 {
		t.Errorf("grain sample count = %d, want 5", len(sampler.grainCalls))
	}
	for i, call := range sampler.grainCalls {
		want := 1000 * grainSamplePositions[i]
		if call.startSecs != want {
			t.Errorf("grain sample %d at %.1fs, want %.1fs", i, call.startSecs, want)
		}
	}
}

func TestEngineGrainDarkBoost(t *testing.T) {
	sampler := &fakeSampler{
		grain: GrainWindow{NoiseLSB: 0.1, LumaMean: 40},
	}

	engine := NewEngine(sampler, nil)
	engine.Analyze(context.Background(), "in.mkv", probeFor(1000))

	// Composite 3 is under the boost floor, so a sixth longer read runs.
	if len(sampler.grainCalls) != 6 {
		t.Fatalf("grain sample count = %d, want 5 + boost", len(sampler.grainCalls))
	}
	boost := sampler.grainCalls[5]
	if boost.frames != grainFrames*2 {
		t.Errorf("boost frames = %d, want %d", boost.frames, grainFrames*2)
	}
	// All windows report the same luma, so the first position is darkest.
	want := 1000 * (grainSamplePositions[0] + 0.02)
	if math.Abs(boost.startSecs-want) > 1e-6 {
		t.Errorf("boost start = %.1fs, want %.1fs", boost.startSecs, want)
	}
}

func TestEngineGrainSampleFailuresDegrade(t *testing.T) {
	sampler := &fakeSampler{grainErr: errors.New("decode failed")}

	engine := NewEngine(sampler, nil)
	signals := engine.Analyze(context.Background(), "in.mkv", probeFor(600))

	if signals.GrainLevel != 0 {
		t.Errorf("GrainLevel = %f, want 0 when every sample fails", signals.GrainLevel)
	}
}
