package ffmpeg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jdhalbert/requant/internal/config"
)

// PassPurpose distinguishes the statistics-gathering pass from the final
// encode pass.
type PassPurpose int

const (
	// PurposeFinal produces the output file.
	PurposeFinal PassPurpose = iota
	// PurposeAnalysis gathers rate-control statistics and discards output.
	PurposeAnalysis
)

func (p PassPurpose) String() string {
	if p == PurposeAnalysis {
		return "analysis"
	}
	return "final"
}

// Pass describes one encoder invocation within a run.
type Pass struct {
	Purpose   PassPurpose
	Index     int    // 1-based ffmpeg pass number
	Preset    string // speed preset for this pass
	StatsFile string // inter-pass stats path; empty for single-pass
}

// EncodeParams is everything the command builder needs to render an
// encoder invocation. It is assembled once per run and shared by all
// passes of that run.
type EncodeParams struct {
	InputPath  string
	OutputPath string

	Mode        config.EncodingMode
	CRF         float64
	BitrateKbps int

	EncoderParams map[string]string // x265 param set, profile plus HDR additions
	Filters       *FilterChain
}

// VBVBufsizeKbps computes the VBV buffer for constant-bitrate mode:
// 1.5x the target, rounded to the nearest kbps.
func VBVBufsizeKbps(bitrateKbps int) int {
	return (bitrateKbps*3 + 1) / 2
}

// formatX265Params renders a param map as a colon-separated x265 option
// string with deterministic key ordering.
func formatX265Params(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, ":")
}
