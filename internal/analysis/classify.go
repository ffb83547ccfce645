package analysis

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffprobe"
)

// Classification pairs a content-type label with a confidence percentage.
type Classification struct {
	Type       config.ContentType
	Confidence float64 // 0-100
}

// Technical classifier thresholds.
const (
	// techConfidenceFinal skips the oracle when the technical confidence
	// reaches it and no lookup was forced.
	techConfidenceFinal = 80.0

	heavyGrainThreshold = 15.0
	lightGrainThreshold = 5.0
	nearZeroGrain       = 1.0
	actionMotion        = 20.0
	boundedMotion       = 15.0
)

// ClassifyTechnical derives a content-type label from measured signals and
// probe metadata using fixed thresholds.
func ClassifyTechnical(signals ComplexitySignals, probe *ffprobe.MediaProbe) Classification {
	grain := signals.GrainLevel
	motion := signals.TemporalInfo

	switch {
	case grain < nearZeroGrain && isStandardAspect(probe) && motion <= actionMotion:
		return Classification{Type: config.Content3DAnimation, Confidence: 75}
	case grain < lightGrainThreshold && motion <= boundedMotion && probe.Width < config.HDWidthThreshold:
		return Classification{Type: config.ContentAnime, Confidence: 80}
	case grain >= heavyGrainThreshold:
		return Classification{Type: config.ContentHeavyGrain, Confidence: 90}
	case grain > lightGrainThreshold && grain < heavyGrainThreshold:
		return Classification{Type: config.ContentLightGrain, Confidence: 70}
	case motion > actionMotion:
		return Classification{Type: config.ContentAction, Confidence: 65}
	default:
		return Classification{Type: config.ContentFilm, Confidence: 60}
	}
}

// isStandardAspect reports whether the frame is near a 16:9 or 1.85:1
// aspect ratio, which CG animation almost always uses.
func isStandardAspect(probe *ffprobe.MediaProbe) bool {
	if probe.Height == 0 {
		return false
	}
	ar := float64(probe.Width) / float64(probe.Height)
	return math.Abs(ar-16.0/9.0) < 0.05 || math.Abs(ar-1.85) < 0.05
}

// ContentOracle provides an advisory content-type classification from
// title metadata. Implementations may be unavailable or return
// config.ContentUnknown; both degrade gracefully.
type ContentOracle interface {
	Classify(ctx context.Context, title string, year int, isSeries bool) (Classification, error)
}

// Resolver merges technical and oracle classifications.
type Resolver struct {
	Oracle      ContentOracle // optional
	ForceOracle bool          // consult the oracle even at high technical confidence
}

// Resolve applies the merge policy:
//   - technical confidence >= 80 and no forced lookup: technical is final
//   - oracle unavailable, failed, or unknown: technical
//   - both agree: same label, confidence min(95, avg+10)
//   - oracle confidence exceeds technical: oracle
//   - oracle >= 70 while technical < 70: oracle
//   - otherwise: technical
func (r *Resolver) Resolve(ctx context.Context, technical Classification, title string, year int, isSeries bool) Classification {
	if technical.Confidence >= techConfidenceFinal && !r.ForceOracle {
		return technical
	}
	if r.Oracle == nil {
		return technical
	}

	oracle, err := r.Oracle.Classify(ctx, title, year, isSeries)
	if err != nil || oracle.Type == config.ContentUnknown || oracle.Type == "" {
		return technical
	}

	if oracle.Type == technical.Type {
		merged := math.Min(95, (technical.Confidence+oracle.Confidence)/2+10)
		return Classification{Type: technical.Type, Confidence: merged}
	}
	if oracle.Confidence > technical.Confidence {
		return oracle
	}
	if oracle.Confidence >= 70 && technical.Confidence < 70 {
		return oracle
	}
	return technical
}

// Filename-pattern fallback used when no technical signal is available.
var filenamePatterns = []struct {
	re *regexp.Regexp
	ct config.ContentType
}{
	{regexp.MustCompile(`(?i)\banime\b|\[(SubsPlease|Erai-raws|HorribleSubs)\]`), config.ContentAnime},
	{regexp.MustCompile(`(?i)\b(pixar|dreamworks|cgi|3d)\b`), config.Content3DAnimation},
	{regexp.MustCompile(`(?i)\b(web-?dl|web-?rip)\b`), config.ContentCleanDigital},
	{regexp.MustCompile(`(?i)\b(19[0-7]\d)\b.*\b(remux|bluray|blu-ray)\b`), config.ContentHeavyGrain},
}

// ClassifyFilename guesses a content type from filename markers. It is the
// last-resort fallback and reports low confidence.
func ClassifyFilename(filename string) Classification {
	for _, p := range filenamePatterns {
		if p.re.MatchString(filename) {
			return Classification{Type: p.ct, Confidence: 40}
		}
	}
	return Classification{Type: config.ContentFilm, Confidence: 30}
}

// TitleFromFilename strips release tags from a filename to produce an
// oracle-friendly title and extracts a year when present.
func TitleFromFilename(filename string) (title string, year int) {
	name := strings.TrimSuffix(filename, extOf(filename))

	if m := regexp.MustCompile(`\b(19|20)\d{2}\b`).FindStringIndex(name); m != nil {
		yearStr := name[m[0]:m[1]]
		year = int(yearStr[0]-'0')*1000 + int(yearStr[1]-'0')*100 + int(yearStr[2]-'0')*10 + int(yearStr[3]-'0')
		name = name[:m[0]]
	}

	name = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), " "), year
}

func extOf(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		return filename[idx:]
	}
	return ""
}
