package requant

import "time"

// EventType identifies the kind of an encoding event.
type EventType string

const (
	EventTypeAnalysisResult     EventType = "analysis_result"
	EventTypePassStarted        EventType = "pass_started"
	EventTypeEncodingProgress   EventType = "encoding_progress"
	EventTypeValidationComplete EventType = "validation_complete"
	EventTypeEncodingComplete   EventType = "encoding_complete"
	EventTypeWarning            EventType = "warning"
	EventTypeError              EventType = "error"
	EventTypeBatchComplete      EventType = "batch_complete"
)

// Event is the common interface for all encoding events.
type Event interface {
	Type() EventType
	Timestamp() int64
}

// EventHandler receives encoding events. Returning an error does not
// abort the encode; handlers are advisory observers.
type EventHandler func(Event) error

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      int64     `json:"timestamp"`
}

func (e BaseEvent) Type() EventType  { return e.EventType }
func (e BaseEvent) Timestamp() int64 { return e.Time }

// NewTimestamp returns the current Unix timestamp for event stamping.
func NewTimestamp() int64 {
	return time.Now().Unix()
}

// AnalysisResultEvent reports the complexity score and resolved content type.
type AnalysisResultEvent struct {
	BaseEvent
	ComplexityScore float64 `json:"complexity_score"`
	ContentType     string  `json:"content_type"`
	Confidence      float64 `json:"confidence"`
	Profile         string  `json:"profile"`
}

// PassStartedEvent reports the start of one encoder pass.
type PassStartedEvent struct {
	BaseEvent
	Pass        int    `json:"pass"`
	TotalPasses int    `json:"total_passes"`
	Purpose     string `json:"purpose"`
}

// EncodingProgressEvent reports pass progress.
type EncodingProgressEvent struct {
	BaseEvent
	Pass       int     `json:"pass"`
	Percent    float32 `json:"percent"`
	Speed      float32 `json:"speed"`
	FPS        float32 `json:"fps"`
	ETASeconds int64   `json:"eta_seconds"`
}

// ValidationStep is one post-encode validation check.
type ValidationStep struct {
	Step    string `json:"step"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// ValidationCompleteEvent reports post-encode validation results.
type ValidationCompleteEvent struct {
	BaseEvent
	ValidationPassed bool             `json:"validation_passed"`
	ValidationSteps  []ValidationStep `json:"validation_steps"`
}

// EncodingCompleteEvent reports the final result of one file.
type EncodingCompleteEvent struct {
	BaseEvent
	OutputFile           string  `json:"output_file"`
	OriginalSize         uint64  `json:"original_size"`
	EncodedSize          uint64  `json:"encoded_size"`
	SizeReductionPercent float64 `json:"size_reduction_percent"`
}

// WarningEvent reports a non-fatal condition.
type WarningEvent struct {
	BaseEvent
	Message string `json:"message"`
}

// ErrorEvent reports a failed encode.
type ErrorEvent struct {
	BaseEvent
	Title      string `json:"title"`
	Message    string `json:"message"`
	Context    string `json:"context"`
	Suggestion string `json:"suggestion"`
}

// BatchCompleteEvent reports batch totals.
type BatchCompleteEvent struct {
	BaseEvent
	SuccessfulCount           int     `json:"successful_count"`
	TotalFiles                int     `json:"total_files"`
	TotalSizeReductionPercent float64 `json:"total_size_reduction_percent"`
}
