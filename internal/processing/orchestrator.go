package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/jdhalbert/requant/internal/adapt"
	"github.com/jdhalbert/requant/internal/analysis"
	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/crop"
	rqerr "github.com/jdhalbert/requant/internal/errors"
	"github.com/jdhalbert/requant/internal/ffmpeg"
	"github.com/jdhalbert/requant/internal/ffprobe"
	"github.com/jdhalbert/requant/internal/logging"
	"github.com/jdhalbert/requant/internal/reporter"
	"github.com/jdhalbert/requant/internal/util"
	"github.com/jdhalbert/requant/internal/validation"
)

// EncodeResult contains the result of a single file encode.
type EncodeResult struct {
	Filename          string
	Duration          time.Duration
	InputSize         uint64
	OutputSize        uint64
	VideoDurationSecs float64
	EncodingSpeed     float32
	ComplexityScore   float64
	ContentType       config.ContentType
	ValidationPassed  bool
	ValidationSteps   []validation.Step
}

// Orchestrator wires the decision pipeline to subprocess execution.
// Zero fields fall back to production implementations.
type Orchestrator struct {
	Config   *config.Config
	Logger   *logging.Logger
	Reporter reporter.Reporter
	Sampler  analysis.Sampler       // nil uses the ffmpeg sampler
	Oracle   analysis.ContentOracle // nil disables oracle lookups
	Runner   passRunner             // nil uses the subprocess executor
}

func (o *Orchestrator) reporterOrNull() reporter.Reporter {
	if o.Reporter == nil {
		return reporter.NullReporter{}
	}
	return o.Reporter
}

func (o *Orchestrator) runner() passRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return ffmpeg.NewExecutor(o.Logger, o.Config.ResponsiveEncoding)
}

// ProcessVideos orchestrates encoding for a list of video files. Runs
// are sequential; per-file failures are reported and skipped rather
// than aborting the batch.
func (o *Orchestrator) ProcessVideos(ctx context.Context, filesToProcess []string, targetFilenameOverride string) ([]EncodeResult, error) {
	cfg := o.Config
	rep := o.reporterOrNull()

	var results []EncodeResult

	if len(filesToProcess) > 1 {
		var fileNames []string
		for _, f := range filesToProcess {
			fileNames = append(fileNames, util.GetFilename(f))
		}
		rep.BatchStarted(reporter.BatchStartInfo{
			TotalFiles: len(filesToProcess),
			FileList:   fileNames,
			OutputDir:  cfg.OutputDir,
		})
	}

	for fileIdx, inputPath := range filesToProcess {
		if ctx.Err() != nil {
			rep.Warning(fmt.Sprintf("Encoding cancelled: %v", ctx.Err()))
			break
		}

		if len(filesToProcess) > 1 {
			rep.FileProgress(reporter.FileProgressContext{
				CurrentFile: fileIdx + 1,
				TotalFiles:  len(filesToProcess),
			})
		}

		override := ""
		if len(filesToProcess) == 1 && targetFilenameOverride != "" {
			override = targetFilenameOverride
		}
		outputPath := util.ResolveOutputPath(inputPath, cfg.OutputDir, override)

		if util.FileExists(outputPath) {
			rep.Warning(fmt.Sprintf("Output file already exists: %s. Skipping encode.", outputPath))
			continue
		}

		result, err := o.encodeFile(ctx, inputPath, outputPath)
		if err != nil {
			if rqerr.IsCancelled(err) {
				rep.Warning("Encoding cancelled")
				break
			}
			rep.Error(reporter.ReporterError{
				Title:      "Encoding Error",
				Message:    fmt.Sprintf("Failed to encode %s: %v", util.GetFilename(inputPath), err),
				Context:    fmt.Sprintf("File: %s", inputPath),
				Suggestion: suggestionFor(err),
			})
			continue
		}
		results = append(results, *result)

		// Cooldown between encodes
		if len(filesToProcess) > 1 && fileIdx < len(filesToProcess)-1 && cfg.EncodeCooldownSecs > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(cfg.EncodeCooldownSecs) * time.Second):
			}
		}
	}

	o.summarize(results, len(filesToProcess))
	return results, nil
}

// encodeFile runs the full decision pipeline and pass plan for one input.
func (o *Orchestrator) encodeFile(ctx context.Context, inputPath, outputPath string) (*EncodeResult, error) {
	cfg := o.Config
	rep := o.reporterOrNull()
	inputFilename := util.GetFilename(inputPath)
	fileStartTime := time.Now()

	probe, err := ffprobe.Probe(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	rep.Initialization(reporter.InitializationSummary{
		InputFile:        inputFilename,
		OutputFile:       util.GetFilename(outputPath),
		Duration:         util.FormatDuration(probe.DurationSecs),
		Resolution:       fmt.Sprintf("%dx%d", probe.Width, probe.Height),
		DynamicRange:     dynamicRangeLabel(probe.IsHDR),
		AudioDescription: fmt.Sprintf("%d track(s)", probe.AudioStreams),
	})

	// Complexity analysis.
	var signals analysis.ComplexitySignals
	if cfg.DisableComplexity {
		signals = analysis.NeutralSignals(probe.IsHDR)
		o.Logger.Info("complexity analysis disabled, using neutral score")
	} else {
		rep.StageProgress(reporter.StageProgress{Stage: "analysis", Message: "Sampling source complexity"})
		engine := analysis.NewEngine(o.Sampler, o.Logger)
		signals = engine.Analyze(ctx, inputPath, probe)
	}
	score := analysis.Score(signals)
	o.Logger.Info("complexity score %.1f (SI %.1f, TI %.1f, scene %.2f, grain %.2f)",
		score, signals.SpatialInfo, signals.TemporalInfo, signals.SceneChangeRate, signals.GrainLevel)

	// Content-type resolution and profile selection.
	profile, classification, source := o.resolveContent(ctx, inputFilename, signals, probe)
	rep.AnalysisResult(reporter.AnalysisSummary{
		ComplexityScore: score,
		ContentType:     classification.Type.String(),
		Confidence:      classification.Confidence,
		Source:          source,
		Profile:         profile.Name,
	})

	params := adapt.Adapt(profile, score, classification.Type, probe.IsHDR)
	o.Logger.Info("adapted parameters: CRF %.2f, bitrate %d kbps, preset %s",
		params.CRF, params.BitrateKbps, params.Preset)

	// Crop detection.
	cropResult := o.detectCrop(ctx, inputPath, probe)
	cropStr := ""
	if cropResult.Region != nil {
		cropStr = cropResult.Region.String()
	}
	rep.CropResult(reporter.CropSummary{
		Message:  cropResult.Message,
		Crop:     cropStr,
		Required: cropResult.Required,
		Manual:   cropResult.Manual,
		Disabled: cfg.DisableCrop,
	})

	// Filter graph: denoise, then crop, then scale.
	filters := ffmpeg.NewFilterChain().
		WithDenoise(cfg.DenoiseFilter).
		WithScale(cfg.ScaleFilter)
	if cropResult.Required {
		filters.WithCrop(cropResult.Region.Filter())
	}

	encodeParams := ffmpeg.EncodeParams{
		InputPath:     inputPath,
		OutputPath:    outputPath,
		Mode:          cfg.Mode,
		CRF:           params.CRF,
		BitrateKbps:   params.BitrateKbps,
		EncoderParams: params.EncoderParams,
		Filters:       filters,
	}

	plan := NewPassPlan(cfg.Mode, params.Preset, cfg.GetTempDir(), util.NewRunID())

	rep.EncodingConfig(reporter.EncodingConfigSummary{
		Encoder:    "x265 (libx265)",
		Mode:       cfg.Mode.String(),
		Preset:     params.Preset,
		Quality:    qualityLabel(cfg.Mode, params),
		Passes:     len(plan.Passes),
		FilterDesc: filters.Build(),
		X265Params: "",
	})

	if err := runPlan(ctx, o.runner(), plan, encodeParams, probe, score, rep, o.Logger); err != nil {
		return nil, err
	}

	elapsed := time.Since(fileStartTime)
	inputSize, _ := util.GetFileSize(inputPath)
	outputSize, _ := util.GetFileSize(outputPath)
	encodingSpeed := float32(probe.DurationSecs) / float32(elapsed.Seconds())

	// Validate the output against the plan.
	expW, expH := probe.Width, probe.Height
	if cropResult.Required {
		expW, expH = cropResult.Region.Width, cropResult.Region.Height
	}
	duration := probe.DurationSecs
	audioTracks := probe.AudioStreams
	isHDR := probe.IsHDR

	validationResult, err := validation.ValidateOutput(ctx, outputPath, validation.Expectation{
		Dimensions:   &[2]int{expW, expH},
		DurationSecs: &duration,
		HDR:          &isHDR,
		AudioTracks:  &audioTracks,
	})

	var validationPassed bool
	var validationSteps []validation.Step
	if err != nil {
		validationPassed = false
		validationSteps = []validation.Step{
			{Name: "Validation", Passed: false, Details: err.Error()},
		}
	} else {
		validationPassed = validationResult.IsValid()
		validationSteps = validationResult.Steps()
	}

	var repSteps []reporter.ValidationStep
	for _, s := range validationSteps {
		repSteps = append(repSteps, reporter.ValidationStep{
			Name:    s.Name,
			Passed:  s.Passed,
			Details: s.Details,
		})
	}
	rep.ValidationComplete(reporter.ValidationSummary{
		Passed: validationPassed,
		Steps:  repSteps,
	})

	rep.EncodingComplete(reporter.EncodingOutcome{
		InputFile:    inputFilename,
		OutputFile:   util.GetFilename(outputPath),
		OriginalSize: inputSize,
		EncodedSize:  outputSize,
		VideoStream:  fmt.Sprintf("HEVC (libx265), %dx%d", expW, expH),
		AudioStream:  fmt.Sprintf("%d track(s), copied", probe.AudioStreams),
		TotalTime:    elapsed,
		AverageSpeed: encodingSpeed,
		OutputPath:   outputPath,
	})

	return &EncodeResult{
		Filename:          inputFilename,
		Duration:          elapsed,
		InputSize:         inputSize,
		OutputSize:        outputSize,
		VideoDurationSecs: probe.DurationSecs,
		EncodingSpeed:     encodingSpeed,
		ComplexityScore:   score,
		ContentType:       classification.Type,
		ValidationPassed:  validationPassed,
		ValidationSteps:   validationSteps,
	}, nil
}

// resolveContent selects the profile and content type. An explicitly
// named profile is authoritative; automatic selection classifies
// technically and optionally consults the oracle.
func (o *Orchestrator) resolveContent(
	ctx context.Context,
	inputFilename string,
	signals analysis.ComplexitySignals,
	probe *ffprobe.MediaProbe,
) (config.Profile, analysis.Classification, string) {
	cfg := o.Config

	if cfg.ProfileName != config.ProfileAuto {
		profile, err := config.GetProfile(cfg.ProfileName)
		if err == nil {
			return profile, analysis.Classification{Type: profile.ContentType, Confidence: 100}, "profile"
		}
		o.Logger.Warn("unknown profile %q, falling back to automatic selection", cfg.ProfileName)
	}

	technical := analysis.ClassifyTechnical(signals, probe)
	if !signals.HasSignal() {
		technical = analysis.ClassifyFilename(inputFilename)
		o.Logger.Warn("no usable complexity signal, classifying from filename: %s (%.0f%%)",
			technical.Type, technical.Confidence)
	}
	resolver := &analysis.Resolver{Oracle: o.Oracle, ForceOracle: cfg.ForceOracle}
	title, year := analysis.TitleFromFilename(inputFilename)
	resolved := resolver.Resolve(ctx, technical, title, year, false)

	source := "technical"
	if resolved != technical {
		source = "oracle"
		if resolved.Type == technical.Type {
			source = "merged"
		}
	}

	return config.ProfileForContentType(resolved.Type), resolved, source
}

// detectCrop applies a manual override or runs multi-sample detection.
func (o *Orchestrator) detectCrop(ctx context.Context, inputPath string, probe *ffprobe.MediaProbe) crop.Result {
	cfg := o.Config

	if cfg.ManualCrop != "" {
		w, h, x, y, err := config.ParseCrop(cfg.ManualCrop)
		if err == nil {
			o.Logger.Info("manual crop override: %s", cfg.ManualCrop)
			return crop.Manual(w, h, x, y)
		}
		o.Logger.Warn("invalid manual crop %q: %v", cfg.ManualCrop, err)
	}

	return crop.Detect(ctx, inputPath, probe, crop.Options{
		MinPixelDelta: cfg.MinCropPixelDelta,
		Disabled:      cfg.DisableCrop,
	})
}

// summarize emits the end-of-run reporter events.
func (o *Orchestrator) summarize(results []EncodeResult, totalFiles int) {
	rep := o.reporterOrNull()

	switch len(results) {
	case 0:
		rep.Warning("No files were successfully encoded")
	case 1:
		if totalFiles == 1 {
			rep.OperationComplete(fmt.Sprintf("Successfully encoded %s", results[0].Filename))
			return
		}
		fallthrough
	default:
		var totalDuration time.Duration
		var totalOriginalSize, totalEncodedSize uint64
		var totalVideoDuration float64
		var fileResults []reporter.FileResult
		validationPassedCount := 0

		for _, r := range results {
			totalDuration += r.Duration
			totalOriginalSize += r.InputSize
			totalEncodedSize += r.OutputSize
			totalVideoDuration += r.VideoDurationSecs
			fileResults = append(fileResults, reporter.FileResult{
				Filename:  r.Filename,
				Reduction: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
			})
			if r.ValidationPassed {
				validationPassedCount++
			}
		}

		avgSpeed := float32(0)
		if totalDuration.Seconds() > 0 {
			avgSpeed = float32(totalVideoDuration / totalDuration.Seconds())
		}

		rep.BatchComplete(reporter.BatchSummary{
			SuccessfulCount:       len(results),
			TotalFiles:            totalFiles,
			TotalOriginalSize:     totalOriginalSize,
			TotalEncodedSize:      totalEncodedSize,
			TotalDuration:         totalDuration,
			AverageSpeed:          avgSpeed,
			FileResults:           fileResults,
			ValidationPassedCount: validationPassedCount,
			ValidationFailedCount: len(results) - validationPassedCount,
		})
	}
}

func qualityLabel(mode config.EncodingMode, params adapt.Parameters) string {
	if mode == config.ModeCRF {
		return fmt.Sprintf("CRF %.1f", params.CRF)
	}
	return util.FormatBitrate(params.BitrateKbps)
}

func dynamicRangeLabel(isHDR bool) string {
	if isHDR {
		return "HDR"
	}
	return "SDR"
}

func suggestionFor(err error) string {
	switch {
	case rqerr.IsProbeFailure(err):
		return "Check if the file is a valid video format"
	case rqerr.IsPassFailure(err):
		return "Check the encoder log tail for details"
	default:
		return "Check the run log for details"
	}
}
