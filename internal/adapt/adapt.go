// Package adapt maps a base profile, complexity score, content type, and
// HDR flag to final rate-control parameters. Every function here is pure
// and deterministic: the same inputs always produce the same outputs.
package adapt

import (
	"math"

	"github.com/jdhalbert/requant/internal/config"
)

// Parameters is the adapted, run-specific rate-control set. It is derived
// from immutable inputs and discarded after the run.
type Parameters struct {
	CRF           float64 // clamped to [config.MinCRF, config.MaxCRF]
	BitrateKbps   int     // target bitrate; unclamped, it is a target not a cap
	Preset        string
	IsHDR         bool
	EncoderParams map[string]string // profile params plus HDR additions
}

// crfModifiers is the content-type CRF modifier table.
var crfModifiers = map[config.ContentType]float64{
	config.ContentAnime:        0.2,
	config.ContentClassicAnime: 0.5,
	config.Content3DAnimation:  -0.4,
	config.ContentFilm:         0.0,
	config.ContentHeavyGrain:   -0.8,
	config.ContentLightGrain:   -0.3,
	config.ContentAction:       -0.2,
	config.ContentCleanDigital: 0.3,
	config.ContentMixed:        0.1,
}

// bitrateFactors is the content-type bitrate modifier table.
var bitrateFactors = map[config.ContentType]float64{
	config.ContentAnime:        0.90,
	config.ContentClassicAnime: 0.85,
	config.Content3DAnimation:  1.05,
	config.ContentFilm:         1.00,
	config.ContentHeavyGrain:   1.25,
	config.ContentLightGrain:   1.10,
	config.ContentAction:       1.15,
	config.ContentCleanDigital: 0.80,
	config.ContentMixed:        1.00,
}

// hdrCRFOffset is added to the base CRF before any content or complexity
// modifier when the source is HDR.
const hdrCRFOffset = 2.0

// Adapt computes the final parameters for a run.
func Adapt(profile config.Profile, score float64, contentType config.ContentType, isHDR bool) Parameters {
	return Parameters{
		CRF:           AdaptCRF(profile.BaseCRF, score, contentType, isHDR),
		BitrateKbps:   AdaptBitrate(baseBitrate(profile, isHDR), score, contentType),
		Preset:        profile.BasePreset,
		IsHDR:         isHDR,
		EncoderParams: mergeParams(profile.Params, isHDR),
	}
}

// AdaptCRF computes the final CRF. The HDR offset applies to the base
// value before the content and complexity modifiers, and the result is
// clamped to [config.MinCRF, config.MaxCRF].
func AdaptCRF(baseCRF, score float64, contentType config.ContentType, isHDR bool) float64 {
	crf := baseCRF
	if isHDR {
		crf += hdrCRFOffset
	}
	crf += crfModifiers[contentType]
	crf += ComplexityCRFAdjustment(score)

	return math.Min(config.MaxCRF, math.Max(config.MinCRF, crf))
}

// AdaptBitrate computes the target bitrate in kbps. It is monotonically
// non-decreasing in score for a fixed content type.
func AdaptBitrate(baseKbps int, score float64, contentType config.ContentType) int {
	factor, ok := bitrateFactors[contentType]
	if !ok {
		factor = 1.0
	}
	bitrate := float64(baseKbps) * ComplexityBitrateFactor(score) * factor
	return int(math.Round(bitrate))
}

// ComplexityCRFAdjustment maps a complexity score to a CRF delta:
// higher complexity lowers CRF (more bits per frame).
func ComplexityCRFAdjustment(score float64) float64 {
	return (score - 50) * -0.05
}

// ComplexityBitrateFactor maps a complexity score to a bitrate multiplier
// in [0.76, 1.30] for scores in [10, 100].
func ComplexityBitrateFactor(score float64) float64 {
	return 0.7 + score/100*0.6
}

// baseBitrate selects the SDR or HDR base bitrate.
func baseBitrate(profile config.Profile, isHDR bool) int {
	if isHDR {
		return profile.BaseBitrateHDR
	}
	return profile.BaseBitrateSDR
}

// hdrParams are the encoder additions applied to HDR runs.
var hdrParams = map[string]string{
	"colorprim":   "bt2020",
	"transfer":    "smpte2084",
	"colormatrix": "bt2020nc",
	"hdr10":       "1",
}

// mergeParams copies the profile param set, layering HDR additions on top
// when applicable. The profile map is never mutated.
func mergeParams(profileParams map[string]string, isHDR bool) map[string]string {
	merged := make(map[string]string, len(profileParams)+len(hdrParams))
	for k, v := range profileParams {
		merged[k] = v
	}
	if isHDR {
		for k, v := range hdrParams {
			merged[k] = v
		}
	}
	return merged
}
