package util

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{1048576, "1.00 MiB"},
		{1073741824, "1.00 GiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatBitrate(t *testing.T) {
	tests := []struct {
		kbps int
		want string
	}{
		{500, "500 kb/s"},
		{999, "999 kb/s"},
		{1000, "1.0 Mb/s"},
		{6030, "6.0 Mb/s"},
	}

	for _, tt := range tests {
		if got := FormatBitrate(tt.kbps); got != tt.want {
			t.Errorf("FormatBitrate(%d) = %q, want %q", tt.kbps, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
		{-1, "??:??:??"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%f) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		eta  time.Duration
		want string
	}{
		{0, "--"},
		{-5 * time.Second, "--"},
		{45 * time.Second, "45s"},
		{245 * time.Second, "4m05s"},
		{5000 * time.Second, "1h23m"},
	}

	for _, tt := range tests {
		if got := FormatETA(tt.eta); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.eta, got, tt.want)
		}
	}
}

func TestParseFFmpegTime(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"00:00:10.50", 10.5, true},
		{"01:30:00.00", 5400, true},
		{"10:00", 0, false},
		{"garbage", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFFmpegTime(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseFFmpegTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseFFmpegTime(%q) = %f, want %f", tt.input, got, tt.want)
		}
	}
}

func TestCalculateSizeReduction(t *testing.T) {
	if got := CalculateSizeReduction(1000, 500); got != 50 {
		t.Errorf("expected 50%%, got %f", got)
	}
	if got := CalculateSizeReduction(1000, 1500); got != -50 {
		t.Errorf("expected -50%%, got %f", got)
	}
	if got := CalculateSizeReduction(0, 100); got != 0 {
		t.Errorf("expected 0 for zero input, got %f", got)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Error("expected distinct run IDs")
	}
}
