// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// InitializationSummary describes the current file before encoding.
type InitializationSummary struct {
	InputFile        string
	OutputFile       string
	Duration         string
	Resolution       string
	DynamicRange     string
	AudioDescription string
}

// AnalysisSummary contains complexity and classification results.
type AnalysisSummary struct {
	ComplexityScore float64
	ContentType     string
	Confidence      float64
	Source          string // "technical", "oracle", "merged", or "profile"
	Profile         string
}

// CropSummary contains crop detection results.
type CropSummary struct {
	Message  string
	Crop     string
	Required bool
	Manual   bool
	Disabled bool
}

// EncodingConfigSummary contains the resolved encoding configuration.
type EncodingConfigSummary struct {
	Encoder    string
	Mode       string
	Preset     string
	Quality    string // rendered CRF or bitrate target
	Passes     int
	FilterDesc string
	X265Params string
}

// PassInfo identifies one pass of a run.
type PassInfo struct {
	Index       int
	Total       int
	Purpose     string // "analysis" or "final"
	TotalFrames uint64
}

// ProgressSnapshot contains encoding progress information for one pass.
type ProgressSnapshot struct {
	PassIndex     int
	CurrentFrame  uint64
	TotalFrames   uint64
	Percent       float32
	Speed         float32
	FPS           float32
	ETA           time.Duration
	ETAValid      bool
	ProjectedSize uint64 // 0 until a reliable projection exists
	Stalled       bool
}

// ValidationSummary contains validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// EncodingOutcome contains final encoding results.
type EncodingOutcome struct {
	InputFile    string
	OutputFile   string
	OriginalSize uint64
	EncodedSize  uint64
	VideoStream  string
	AudioStream  string
	TotalTime    time.Duration
	AverageSpeed float32
	OutputPath   string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	SuccessfulCount       int
	TotalFiles            int
	TotalOriginalSize     uint64
	TotalEncodedSize      uint64
	TotalDuration         time.Duration
	AverageSpeed          float32
	FileResults           []FileResult
	ValidationPassedCount int
	ValidationFailedCount int
}

// FileResult contains per-file encoding result.
type FileResult struct {
	Filename  string
	Reduction float64
}

// StageProgress represents a generic stage update.
type StageProgress struct {
	Stage   string
	Percent float32
	Message string
	ETA     *time.Duration
}
