package config

import (
	"fmt"
	"sort"
	"strings"
)

// ContentType classifies source material for parameter adaptation.
type ContentType string

const (
	ContentAnime        ContentType = "anime"
	ContentClassicAnime ContentType = "classic_anime"
	Content3DAnimation  ContentType = "3d_animation"
	ContentFilm         ContentType = "film"
	ContentHeavyGrain   ContentType = "heavy_grain"
	ContentLightGrain   ContentType = "light_grain"
	ContentAction       ContentType = "action"
	ContentCleanDigital ContentType = "clean_digital"
	ContentMixed        ContentType = "mixed"

	// ContentUnknown is returned by oracles that cannot classify a title.
	ContentUnknown ContentType = "unknown"
)

// ParseContentType parses a content type name.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(s)) {
	case ContentAnime, ContentClassicAnime, Content3DAnimation, ContentFilm,
		ContentHeavyGrain, ContentLightGrain, ContentAction, ContentCleanDigital,
		ContentMixed:
		return ContentType(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, s)
	}
}

// String returns the content type name.
func (c ContentType) String() string {
	return string(c)
}

// EncodingMode selects the rate-control strategy and pass count.
type EncodingMode string

const (
	// ModeCRF is single-pass quality-driven rate control with no bitrate target.
	ModeCRF EncodingMode = "crf"
	// ModeABR is two-pass average-bitrate rate control.
	ModeABR EncodingMode = "abr"
	// ModeCBR is two-pass constant-bitrate rate control with VBV constraints.
	ModeCBR EncodingMode = "cbr"
)

// ParseMode parses an encoding mode name.
func ParseMode(s string) (EncodingMode, error) {
	switch strings.ToLower(s) {
	case "crf":
		return ModeCRF, nil
	case "abr":
		return ModeABR, nil
	case "cbr":
		return ModeCBR, nil
	default:
		return "", fmt.Errorf("%w: %q, valid options: crf, abr, cbr", ErrInvalidMode, s)
	}
}

// String returns the mode name.
func (m EncodingMode) String() string {
	return string(m)
}

// PassCount returns the number of encoder passes the mode requires.
func (m EncodingMode) PassCount() int {
	if m == ModeCRF {
		return 1
	}
	return 2
}

// UsesStats reports whether the mode needs an inter-pass stats file.
func (m EncodingMode) UsesStats() bool {
	return m != ModeCRF
}

// Profile is an immutable named encoding template. Profiles are never
// mutated at runtime; adaptation produces a separate parameter set.
type Profile struct {
	Name           string
	Title          string
	BasePreset     string // encoder speed preset for the final pass
	BaseCRF        float64
	BaseBitrateSDR int // kbps
	BaseBitrateHDR int // kbps
	Params         map[string]string
	ContentType    ContentType
}

// ProfileAuto selects automatic content classification instead of a
// named profile.
const ProfileAuto = "auto"

// profiles is the static profile store. Bitrates are kbps targets for the
// two-pass modes; CRF mode ignores them entirely.
var profiles = map[string]Profile{
	"film": {
		Name:           "film",
		Title:          "Live-action film",
		BasePreset:     "slow",
		BaseCRF:        19,
		BaseBitrateSDR: 4500,
		BaseBitrateHDR: 5500,
		Params:         map[string]string{"aq-mode": "3", "psy-rd": "2.0"},
		ContentType:    ContentFilm,
	},
	"anime": {
		Name:           "anime",
		Title:          "Modern anime",
		BasePreset:     "slow",
		BaseCRF:        20,
		BaseBitrateSDR: 3200,
		BaseBitrateHDR: 4000,
		Params:         map[string]string{"aq-mode": "3", "psy-rd": "1.0", "deblock": "1,1"},
		ContentType:    ContentAnime,
	},
	"classic-anime": {
		Name:           "classic-anime",
		Title:          "Classic cel anime",
		BasePreset:     "slow",
		BaseCRF:        20,
		BaseBitrateSDR: 2800,
		BaseBitrateHDR: 3500,
		Params:         map[string]string{"aq-mode": "3", "psy-rd": "0.8", "deblock": "2,2"},
		ContentType:    ContentClassicAnime,
	},
	"3d-animation": {
		Name:           "3d-animation",
		Title:          "3D/CG animation",
		BasePreset:     "slow",
		BaseCRF:        19,
		BaseBitrateSDR: 3800,
		BaseBitrateHDR: 4800,
		Params:         map[string]string{"aq-mode": "2", "psy-rd": "1.5"},
		ContentType:    Content3DAnimation,
	},
	"grain": {
		Name:           "grain",
		Title:          "Heavy film grain",
		BasePreset:     "veryslow",
		BaseCRF:        18,
		BaseBitrateSDR: 6000,
		BaseBitrateHDR: 7500,
		Params:         map[string]string{"aq-mode": "3", "psy-rd": "2.5", "no-sao": "1"},
		ContentType:    ContentHeavyGrain,
	},
	"action": {
		Name:           "action",
		Title:          "High-motion action",
		BasePreset:     "slow",
		BaseCRF:        19,
		BaseBitrateSDR: 5200,
		BaseBitrateHDR: 6500,
		Params:         map[string]string{"aq-mode": "3", "psy-rd": "2.0", "bframes": "5"},
		ContentType:    ContentAction,
	},
	"digital": {
		Name:           "digital",
		Title:          "Clean digital source",
		BasePreset:     "medium",
		BaseCRF:        21,
		BaseBitrateSDR: 2600,
		BaseBitrateHDR: 3400,
		Params:         map[string]string{"aq-mode": "2", "psy-rd": "1.0"},
		ContentType:    ContentCleanDigital,
	},
}

// GetProfile returns the named profile from the static store.
func GetProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q, valid options: %s", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileForContentType returns the profile whose declared content type
// matches, falling back to "film" for types without a dedicated profile.
func ProfileForContentType(ct ContentType) Profile {
	for _, p := range profiles {
		if p.ContentType == ct {
			return p
		}
	}
	p, _ := GetProfile("film")
	return p
}

// ProfileNames returns the sorted list of available profile names.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
