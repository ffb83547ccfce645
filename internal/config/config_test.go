package config

import (
	"errors"
	"testing"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("/output", "/log")

	if cfg.OutputDir != "/output" {
		t.Errorf("expected OutputDir=/output, got %s", cfg.OutputDir)
	}
	if cfg.Mode != ModeCRF {
		t.Errorf("expected default mode crf, got %s", cfg.Mode)
	}
	if cfg.ProfileName != ProfileAuto {
		t.Errorf("expected default profile auto, got %s", cfg.ProfileName)
	}
	if cfg.MinCropPixelDelta != DefaultMinCropPixelDelta {
		t.Errorf("expected MinCropPixelDelta=%d, got %d", DefaultMinCropPixelDelta, cfg.MinCropPixelDelta)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:         "unknown mode is invalid",
			modify:       func(c *Config) { c.Mode = "vbr" },
			wantErr:      true,
			wantSentinel: ErrInvalidMode,
		},
		{
			name:         "unknown profile is invalid",
			modify:       func(c *Config) { c.ProfileName = "sports" },
			wantErr:      true,
			wantSentinel: ErrUnknownProfile,
		},
		{
			name:    "named profile is valid",
			modify:  func(c *Config) { c.ProfileName = "film" },
			wantErr: false,
		},
		{
			name:    "manual crop is valid",
			modify:  func(c *Config) { c.ManualCrop = "1920:800:0:140" },
			wantErr: false,
		},
		{
			name:         "malformed crop is invalid",
			modify:       func(c *Config) { c.ManualCrop = "1920x800" },
			wantErr:      true,
			wantSentinel: ErrInvalidCrop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/output", "/log")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    EncodingMode
		wantErr bool
	}{
		{"crf", ModeCRF, false},
		{"CRF", ModeCRF, false},
		{"abr", ModeABR, false},
		{"cbr", ModeCBR, false},
		{"vbr", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestModePassCount(t *testing.T) {
	if ModeCRF.PassCount() != 1 {
		t.Error("CRF should be single pass")
	}
	if ModeABR.PassCount() != 2 || ModeCBR.PassCount() != 2 {
		t.Error("ABR and CBR should be two passes")
	}
	if ModeCRF.UsesStats() {
		t.Error("CRF should not use a stats file")
	}
	if !ModeABR.UsesStats() || !ModeCBR.UsesStats() {
		t.Error("ABR and CBR should use a stats file")
	}
}

func TestGetProfile(t *testing.T) {
	p, err := GetProfile("film")
	if err != nil {
		t.Fatalf("GetProfile(film) error: %v", err)
	}
	if p.BaseCRF != 19 {
		t.Errorf("film BaseCRF = %f, want 19", p.BaseCRF)
	}
	if p.BaseBitrateSDR != 4500 || p.BaseBitrateHDR != 5500 {
		t.Errorf("film bitrates = %d/%d, want 4500/5500", p.BaseBitrateSDR, p.BaseBitrateHDR)
	}
	if p.ContentType != ContentFilm {
		t.Errorf("film content type = %s", p.ContentType)
	}

	if _, err := GetProfile("nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestProfileForContentType(t *testing.T) {
	p := ProfileForContentType(ContentHeavyGrain)
	if p.Name != "grain" {
		t.Errorf("expected grain profile, got %s", p.Name)
	}

	// Types without a dedicated profile fall back to film.
	p = ProfileForContentType(ContentMixed)
	if p.Name != "film" {
		t.Errorf("expected film fallback, got %s", p.Name)
	}
}

func TestParseCrop(t *testing.T) {
	w, h, x, y, err := ParseCrop("1920:800:0:140")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 1920 || h != 800 || x != 0 || y != 140 {
		t.Errorf("got %d:%d:%d:%d", w, h, x, y)
	}

	bad := []string{"", "1920:800", "a:b:c:d", "0:800:0:0", "-1:800:0:0"}
	for _, s := range bad {
		if _, _, _, _, err := ParseCrop(s); err == nil {
			t.Errorf("ParseCrop(%q) expected error", s)
		}
	}
}
