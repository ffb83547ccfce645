// Package ffmpeg provides FFmpeg command building and pass execution.
package ffmpeg

import "strings"

// FilterChain assembles the video filter graph. Stage order is fixed and
// additive: denoise, then crop, then scale. A stage is only inserted when
// requested; the final stage's output feeds the encoder.
type FilterChain struct {
	denoise string
	crop    string
	scale   string
}

// NewFilterChain creates an empty filter chain.
func NewFilterChain() *FilterChain {
	return &FilterChain{}
}

// WithDenoise sets the optional denoise stage.
func (c *FilterChain) WithDenoise(filter string) *FilterChain {
	c.denoise = filter
	return c
}

// WithCrop sets the optional crop stage (a full "crop=w:h:x:y" filter).
func (c *FilterChain) WithCrop(filter string) *FilterChain {
	c.crop = filter
	return c
}

// WithScale sets the optional scale stage.
func (c *FilterChain) WithScale(filter string) *FilterChain {
	c.scale = filter
	return c
}

// Build renders the chain. Returns an empty string when no stage is set.
func (c *FilterChain) Build() string {
	var stages []string
	for _, stage := range []string{c.denoise, c.crop, c.scale} {
		if stage != "" {
			stages = append(stages, stage)
		}
	}
	return strings.Join(stages, ",")
}

// IsEmpty reports whether no stage was requested.
func (c *FilterChain) IsEmpty() bool {
	return c.denoise == "" && c.crop == "" && c.scale == ""
}
