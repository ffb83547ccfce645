package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Default constants
const (
	// DefaultMode is the default rate-control mode.
	DefaultMode = ModeCRF

	// DefaultProfile selects automatic classification.
	DefaultProfile = ProfileAuto

	// AnalysisPassPreset is the encoder speed preset for a two-pass
	// analysis pass. Statistics gathering does not need final quality.
	AnalysisPassPreset = "fast"

	// MinCRF and MaxCRF bound the adapted CRF value.
	MinCRF = 15.0
	MaxCRF = 28.0

	// NeutralComplexityScore is used when complexity analysis is disabled.
	NeutralComplexityScore = 50.0

	// DefaultMinCropPixelDelta is the minimum combined pixel delta for a
	// detected crop to be accepted.
	DefaultMinCropPixelDelta = 16

	// DefaultEncodeCooldownSecs is the cooldown period between batch encodes.
	DefaultEncodeCooldownSecs uint64 = 3

	// UHDWidthThreshold is the width threshold for 4K-class sources.
	UHDWidthThreshold = 3840

	// QHDWidthThreshold is the width threshold for 1440p-class sources.
	QHDWidthThreshold = 2560

	// HDWidthThreshold is the width threshold for HD sources.
	HDWidthThreshold = 1920
)

// Config holds all configuration for a requant run.
type Config struct {
	// Input/output paths
	OutputDir string
	LogDir    string
	TempDir   string // Optional, defaults to OutputDir

	// Decision inputs
	ProfileName string       // named profile or ProfileAuto
	Mode        EncodingMode // crf, abr, or cbr

	// Overrides
	ManualCrop    string // "w:h:x:y"; bypasses detection when set
	DenoiseFilter string // optional denoise stage (e.g. "hqdn3d=1.5:1.5:3:3")
	ScaleFilter   string // optional scale stage (e.g. "scale=1920:-2")

	// Analysis options
	DisableComplexity bool // use the neutral score instead of sampling
	DisableCrop       bool // skip automatic crop detection
	ForceOracle       bool // always consult the content oracle
	MinCropPixelDelta int

	// Processing options
	ResponsiveEncoding bool // renice encoder subprocesses
	EncodeCooldownSecs uint64
}

// NewConfig creates a new Config with default values.
func NewConfig(outputDir, logDir string) *Config {
	return &Config{
		OutputDir:          outputDir,
		LogDir:             logDir,
		ProfileName:        DefaultProfile,
		Mode:               DefaultMode,
		MinCropPixelDelta:  DefaultMinCropPixelDelta,
		EncodeCooldownSecs: DefaultEncodeCooldownSecs,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeCRF, ModeABR, ModeCBR:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	if c.ProfileName != ProfileAuto {
		if _, err := GetProfile(c.ProfileName); err != nil {
			return err
		}
	}

	if c.ManualCrop != "" {
		if _, _, _, _, err := ParseCrop(c.ManualCrop); err != nil {
			return err
		}
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}

// ParseCrop parses a "w:h:x:y" crop specification.
func ParseCrop(s string) (w, h, x, y int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("%w: %q, expected w:h:x:y", ErrInvalidCrop, s)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		v, perr := strconv.Atoi(part)
		if perr != nil || v < 0 {
			return 0, 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidCrop, s)
		}
		vals[i] = v
	}
	if vals[0] == 0 || vals[1] == 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: zero crop dimension in %q", ErrInvalidCrop, s)
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}
