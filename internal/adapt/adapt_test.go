package adapt

import (
	"math"
	"testing"

	"github.com/jdhalbert/requant/internal/config"
)

func testProfile() config.Profile {
	return config.Profile{
		Name:           "film",
		BasePreset:     "slow",
		BaseCRF:        19,
		BaseBitrateSDR: 4500,
		BaseBitrateHDR: 5500,
		Params:         map[string]string{"aq-mode": "3"},
		ContentType:    config.ContentFilm,
	}
}

func TestAdaptCRFBounds(t *testing.T) {
	types := []config.ContentType{
		config.ContentAnime, config.ContentClassicAnime, config.Content3DAnimation,
		config.ContentFilm, config.ContentHeavyGrain, config.ContentLightGrain,
		config.ContentAction, config.ContentCleanDigital, config.ContentMixed,
	}

	for _, ct := range types {
		for score := 10.0; score <= 100; score += 10 {
			for _, hdr := range []bool{false, true} {
				for _, base := range []float64{10, 15, 19, 25, 30} {
					crf := AdaptCRF(base, score, ct, hdr)
					if crf < config.MinCRF || crf > config.MaxCRF {
						t.Fatalf("AdaptCRF(%f, %f, %s, %v) = %f out of [%f, %f]",
							base, score, ct, hdr, crf, config.MinCRF, config.MaxCRF)
					}
				}
			}
		}
	}
}

func TestAdaptBitrateMonotonicInScore(t *testing.T) {
	for _, ct := range []config.ContentType{config.ContentFilm, config.ContentHeavyGrain, config.ContentAnime} {
		prev := -1
		for score := 10.0; score <= 100; score++ {
			got := AdaptBitrate(4500, score, ct)
			if got < prev {
				t.Fatalf("bitrate decreased for %s at score %f: %d < %d", ct, score, got, prev)
			}
			prev = got
		}
	}
}

func TestAdaptHDRUsesHDRBitrateAndOffset(t *testing.T) {
	p := testProfile()

	sdr := Adapt(p, 50, config.ContentFilm, false)
	hdr := Adapt(p, 50, config.ContentFilm, true)

	// At the neutral score with film modifiers, the values are the bases.
	if sdr.CRF != 19 {
		t.Errorf("SDR CRF = %f, want 19", sdr.CRF)
	}
	if hdr.CRF != 21 {
		t.Errorf("HDR CRF = %f, want 21 (base + 2)", hdr.CRF)
	}
	if sdr.BitrateKbps != 4500 {
		t.Errorf("SDR bitrate = %d, want 4500", sdr.BitrateKbps)
	}
	if hdr.BitrateKbps != 5500 {
		t.Errorf("HDR bitrate = %d, want 5500", hdr.BitrateKbps)
	}
}

func TestAdaptHDROffsetBeforeModifiers(t *testing.T) {
	// base 27 + HDR 2 = 29, then heavy_grain -0.8 and a high score pull it
	// back under the cap. If clamping happened before the modifiers the
	// result would differ.
	crf := AdaptCRF(27, 90, config.ContentHeavyGrain, true)
	want := 27.0 + 2 - 0.8 + (90-50)*-0.05 // 26.2
	if math.Abs(crf-want) > 1e-9 {
		t.Errorf("CRF = %f, want %f", crf, want)
	}
}

func TestAdaptWorkedExample(t *testing.T) {
	// film profile refined to heavy_grain at score 62, SDR:
	// CRF = 19 + (-0.8) + (62-50)*-0.05 = 17.6
	// bitrate = 4500 * (0.7 + 0.62*0.6) * 1.25 = 4500 * 1.072 * 1.25 = 6030
	p := testProfile()
	got := Adapt(p, 62, config.ContentHeavyGrain, false)

	if math.Abs(got.CRF-17.6) > 1e-9 {
		t.Errorf("CRF = %f, want 17.6", got.CRF)
	}
	if got.BitrateKbps != 6030 {
		t.Errorf("bitrate = %d, want 6030", got.BitrateKbps)
	}
}

func TestContentTypeModifierTables(t *testing.T) {
	tests := []struct {
		ct         config.ContentType
		wantCRF    float64
		wantFactor float64
	}{
		{config.ContentAnime, 0.2, 0.90},
		{config.ContentClassicAnime, 0.5, 0.85},
		{config.Content3DAnimation, -0.4, 1.05},
		{config.ContentFilm, 0.0, 1.00},
		{config.ContentHeavyGrain, -0.8, 1.25},
		{config.ContentLightGrain, -0.3, 1.10},
		{config.ContentAction, -0.2, 1.15},
		{config.ContentCleanDigital, 0.3, 0.80},
		{config.ContentMixed, 0.1, 1.00},
	}

	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			// Neutral score isolates the content modifier.
			crf := AdaptCRF(20, 50, tt.ct, false)
			if math.Abs(crf-(20+tt.wantCRF)) > 1e-9 {
				t.Errorf("CRF modifier for %s = %f, want %f", tt.ct, crf-20, tt.wantCRF)
			}

			bitrate := AdaptBitrate(1000, 50, tt.ct)
			want := int(math.Round(1000 * 1.0 * tt.wantFactor))
			if bitrate != want {
				t.Errorf("bitrate for %s = %d, want %d", tt.ct, bitrate, want)
			}
		})
	}
}

func TestComplexityBitrateFactorRange(t *testing.T) {
	if f := ComplexityBitrateFactor(10); math.Abs(f-0.76) > 1e-9 {
		t.Errorf("factor at 10 = %f, want 0.76", f)
	}
	if f := ComplexityBitrateFactor(50); math.Abs(f-1.0) > 1e-9 {
		t.Errorf("factor at 50 = %f, want 1.0", f)
	}
	if f := ComplexityBitrateFactor(100); math.Abs(f-1.3) > 1e-9 {
		t.Errorf("factor at 100 = %f, want 1.3", f)
	}
}

func TestMergeParamsHDRAdditions(t *testing.T) {
	p := testProfile()

	sdr := Adapt(p, 50, config.ContentFilm, false)
	if _, ok := sdr.EncoderParams["colorprim"]; ok {
		t.Error("SDR params should not carry HDR color additions")
	}
	if sdr.EncoderParams["aq-mode"] != "3" {
		t.Error("profile params should carry through")
	}

	hdr := Adapt(p, 50, config.ContentFilm, true)
	if hdr.EncoderParams["colorprim"] != "bt2020" {
		t.Error("HDR params should include colorprim=bt2020")
	}
	if hdr.EncoderParams["transfer"] != "smpte2084" {
		t.Error("HDR params should include transfer=smpte2084")
	}

	// The profile's own map must never be mutated.
	if _, ok := p.Params["colorprim"]; ok {
		t.Error("profile param map was mutated")
	}
}

func TestAdaptDeterministic(t *testing.T) {
	p := testProfile()
	a := Adapt(p, 73.5, config.ContentAction, true)
	b := Adapt(p, 73.5, config.ContentAction, true)

	if a.CRF != b.CRF || a.BitrateKbps != b.BitrateKbps {
		t.Error("Adapt is not deterministic")
	}
}
