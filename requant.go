// Package requant provides a Go library for adaptive HEVC re-encoding
// with x265.
//
// Requant is an opinionated FFmpeg wrapper that analyzes a source's
// complexity and content type, adapts rate-control parameters to fit,
// detects black bars, and drives single- or multi-pass encodes with
// live progress feedback and post-encode validation.
//
// Basic usage:
//
//	encoder, err := requant.New(
//	    requant.WithMode(requant.ModeABR),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := encoder.Encode(ctx, "input.mkv", "output/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded: %s, reduction: %.1f%%\n",
//	    result.OutputFile, result.SizeReductionPercent)
package requant

import (
	"context"
	"fmt"

	"github.com/jdhalbert/requant/internal/analysis"
	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/discovery"
	"github.com/jdhalbert/requant/internal/processing"
	"github.com/jdhalbert/requant/internal/reporter"
	"github.com/jdhalbert/requant/internal/util"
)

// Re-export the encoding mode type.
type EncodingMode = config.EncodingMode

const (
	ModeCRF = config.ModeCRF
	ModeABR = config.ModeABR
	ModeCBR = config.ModeCBR
)

// Reporter re-exports the event reporter interface for library callers
// that want full access to encoding events.
type Reporter = reporter.Reporter

// ContentOracle re-exports the advisory content classification interface.
type ContentOracle = analysis.ContentOracle

// ParseMode converts a mode string to an EncodingMode.
// Valid values are "crf", "abr", and "cbr" (case-insensitive).
func ParseMode(s string) (EncodingMode, error) {
	return config.ParseMode(s)
}

// Encoder is the main entry point for video encoding.
type Encoder struct {
	config *config.Config
	oracle analysis.ContentOracle
}

// Result contains the result of a single file encode.
type Result struct {
	OutputFile           string
	OriginalSize         uint64
	EncodedSize          uint64
	SizeReductionPercent float64
	ComplexityScore      float64
	ContentType          string
	ValidationPassed     bool
	EncodingSpeed        float32
}

// BatchResult contains the result of a batch encode.
type BatchResult struct {
	Results               []Result
	SuccessfulCount       int
	TotalFiles            int
	TotalSizeReduction    float64
	ValidationPassedCount int
}

// Option configures the encoder.
type Option func(*Encoder)

// New creates a new Encoder with the given options.
func New(opts ...Option) (*Encoder, error) {
	e := &Encoder{config: config.NewConfig(".", ".")}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// WithMode selects the rate-control mode.
func WithMode(m EncodingMode) Option {
	return func(e *Encoder) {
		e.config.Mode = m
	}
}

// WithProfile selects a named encoding profile instead of automatic
// content classification.
func WithProfile(name string) Option {
	return func(e *Encoder) {
		e.config.ProfileName = name
	}
}

// WithManualCrop overrides crop detection with a fixed "w:h:x:y" crop.
func WithManualCrop(crop string) Option {
	return func(e *Encoder) {
		e.config.ManualCrop = crop
	}
}

// WithDisableAutocrop disables automatic black bar detection.
func WithDisableAutocrop() Option {
	return func(e *Encoder) {
		e.config.DisableCrop = true
	}
}

// WithDisableComplexity skips complexity sampling and encodes at the
// neutral score.
func WithDisableComplexity() Option {
	return func(e *Encoder) {
		e.config.DisableComplexity = true
	}
}

// WithForceOracle consults the content oracle even when the technical
// classification is already confident.
func WithForceOracle() Option {
	return func(e *Encoder) {
		e.config.ForceOracle = true
	}
}

// WithOracle supplies a content oracle for automatic classification.
func WithOracle(oracle ContentOracle) Option {
	return func(e *Encoder) {
		e.oracle = oracle
	}
}

// WithDenoiseFilter inserts a denoise stage ahead of crop and scale.
func WithDenoiseFilter(filter string) Option {
	return func(e *Encoder) {
		e.config.DenoiseFilter = filter
	}
}

// WithScaleFilter appends a scale stage after crop.
func WithScaleFilter(filter string) Option {
	return func(e *Encoder) {
		e.config.ScaleFilter = filter
	}
}

// WithResponsive lowers encoder subprocess priority so the machine
// stays usable during long encodes.
func WithResponsive() Option {
	return func(e *Encoder) {
		e.config.ResponsiveEncoding = true
	}
}

// WithTempDir sets the directory for stats files and sample frames.
func WithTempDir(dir string) Option {
	return func(e *Encoder) {
		e.config.TempDir = dir
	}
}

// EncodeWithReporter encodes a single video file using a custom Reporter.
// This provides direct access to all encoding events, unlike Encode which
// uses the EventHandler abstraction.
func (e *Encoder) EncodeWithReporter(ctx context.Context, input, outputDir string, rep Reporter) (*Result, error) {
	results, err := e.process(ctx, []string{input}, outputDir, rep)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no files were encoded")
	}
	return resultFrom(results[0], input, outputDir), nil
}

// Encode encodes a single video file.
func (e *Encoder) Encode(ctx context.Context, input, outputDir string, handler EventHandler) (*Result, error) {
	var rep reporter.Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}
	return e.EncodeWithReporter(ctx, input, outputDir, rep)
}

// EncodeBatch encodes multiple video files.
func (e *Encoder) EncodeBatch(ctx context.Context, inputs []string, outputDir string, handler EventHandler) (*BatchResult, error) {
	var rep reporter.Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}

	results, err := e.process(ctx, inputs, outputDir, rep)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		TotalFiles: len(inputs),
	}

	var totalInputSize, totalOutputSize uint64
	for _, r := range results {
		batch.Results = append(batch.Results, *resultFrom(r, r.Filename, outputDir))
		batch.SuccessfulCount++
		totalInputSize += r.InputSize
		totalOutputSize += r.OutputSize
		if r.ValidationPassed {
			batch.ValidationPassedCount++
		}
	}

	batch.TotalSizeReduction = util.CalculateSizeReduction(totalInputSize, totalOutputSize)

	return batch, nil
}

func (e *Encoder) process(ctx context.Context, inputs []string, outputDir string, rep Reporter) ([]processing.EncodeResult, error) {
	cfg := *e.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if rep == nil {
		rep = reporter.NullReporter{}
	}

	orch := &processing.Orchestrator{
		Config:   &cfg,
		Reporter: rep,
		Oracle:   e.oracle,
	}
	return orch.ProcessVideos(ctx, inputs, "")
}

func resultFrom(r processing.EncodeResult, input, outputDir string) *Result {
	return &Result{
		OutputFile:           util.ResolveOutputPath(input, outputDir, ""),
		OriginalSize:         r.InputSize,
		EncodedSize:          r.OutputSize,
		SizeReductionPercent: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
		ComplexityScore:      r.ComplexityScore,
		ContentType:          r.ContentType.String(),
		ValidationPassed:     r.ValidationPassed,
		EncodingSpeed:        r.EncodingSpeed,
	}
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// eventReporter adapts EventHandler to the Reporter interface.
type eventReporter struct {
	reporter.NullReporter
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) AnalysisResult(s reporter.AnalysisSummary) {
	_ = r.handler(AnalysisResultEvent{
		BaseEvent:       BaseEvent{EventType: EventTypeAnalysisResult, Time: NewTimestamp()},
		ComplexityScore: s.ComplexityScore,
		ContentType:     s.ContentType,
		Confidence:      s.Confidence,
		Profile:         s.Profile,
	})
}

func (r *eventReporter) PassStarted(p reporter.PassInfo) {
	_ = r.handler(PassStartedEvent{
		BaseEvent:   BaseEvent{EventType: EventTypePassStarted, Time: NewTimestamp()},
		Pass:        p.Index,
		TotalPasses: p.Total,
		Purpose:     p.Purpose,
	})
}

func (r *eventReporter) PassProgress(p reporter.ProgressSnapshot) {
	etaSecs := int64(0)
	if p.ETAValid {
		etaSecs = int64(p.ETA.Seconds())
	}
	_ = r.handler(EncodingProgressEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeEncodingProgress, Time: NewTimestamp()},
		Pass:       p.PassIndex,
		Percent:    p.Percent,
		Speed:      p.Speed,
		FPS:        p.FPS,
		ETASeconds: etaSecs,
	})
}

func (r *eventReporter) ValidationComplete(s reporter.ValidationSummary) {
	steps := make([]ValidationStep, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = ValidationStep{
			Step:    step.Name,
			Passed:  step.Passed,
			Details: step.Details,
		}
	}
	_ = r.handler(ValidationCompleteEvent{
		BaseEvent:        BaseEvent{EventType: EventTypeValidationComplete, Time: NewTimestamp()},
		ValidationPassed: s.Passed,
		ValidationSteps:  steps,
	})
}

func (r *eventReporter) EncodingComplete(s reporter.EncodingOutcome) {
	_ = r.handler(EncodingCompleteEvent{
		BaseEvent:            BaseEvent{EventType: EventTypeEncodingComplete, Time: NewTimestamp()},
		OutputFile:           s.OutputFile,
		OriginalSize:         s.OriginalSize,
		EncodedSize:          s.EncodedSize,
		SizeReductionPercent: util.CalculateSizeReduction(s.OriginalSize, s.EncodedSize),
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: BaseEvent{EventType: EventTypeWarning, Time: NewTimestamp()},
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeError, Time: NewTimestamp()},
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

func (r *eventReporter) BatchComplete(s reporter.BatchSummary) {
	_ = r.handler(BatchCompleteEvent{
		BaseEvent:                 BaseEvent{EventType: EventTypeBatchComplete, Time: NewTimestamp()},
		SuccessfulCount:           s.SuccessfulCount,
		TotalFiles:                s.TotalFiles,
		TotalSizeReductionPercent: util.CalculateSizeReduction(s.TotalOriginalSize, s.TotalEncodedSize),
	})
}
