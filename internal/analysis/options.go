package analysis

import (
	"fmt"

	"spider-pca/internal/markers"
)

// Pooling selects what one PCA sample is.
type Pooling string

const (
	// PoolBody fits whole-body poses, one sample per frame.
	PoolBody Pooling = "body"

	// PoolLegs fits single legs, one sample per (frame, leg).
	PoolLegs Pooling = "legs"

	// PoolBilateral fits one body side at a time: the contralateral legs are
	// stacked below the ipsilateral ones, one sample per (frame, side).
	PoolBilateral Pooling = "bilateral"
)

// Options configures how a session prepares data for fitting.
type Options struct {
	Pooling Pooling `yaml:"pooling" json:"pooling" validate:"oneof=body legs bilateral"`

	// CoxaCenter expresses leg keypoints relative to their coxa. Ignored
	// for body pooling.
	CoxaCenter bool `yaml:"coxa_center" json:"coxa_center"`

	// Reflect mirrors contralateral legs onto the ipsilateral side. Ignored
	// for body pooling.
	Reflect bool `yaml:"reflect" json:"reflect"`

	AnimationFrames int `yaml:"animation_frames" json:"animation_frames" validate:"min=1"`

	// Components used by Reconstruct when the caller passes none. Empty
	// means all.
	Components []int `yaml:"components,omitempty" json:"components,omitempty" validate:"dive,min=0"`
}

// DefaultOptions pools coxa-centered, reflected legs.
func DefaultOptions() Options {
	return Options{
		Pooling:         PoolLegs,
		CoxaCenter:      true,
		Reflect:         true,
		AnimationFrames: 60,
	}
}

// Validate checks the options without struct tags, for callers that do not
// go through the config file.
func (o Options) Validate() error {
	switch o.Pooling {
	case PoolBody, PoolLegs, PoolBilateral:
	default:
		return fmt.Errorf("unknown pooling %q: %w", o.Pooling, markers.ErrInvalidInput)
	}
	if o.AnimationFrames < 1 {
		return fmt.Errorf("animation frames %d: %w", o.AnimationFrames, markers.ErrInvalidInput)
	}
	for _, c := range o.Components {
		if c < 0 {
			return fmt.Errorf("component %d: %w", c, markers.ErrIndex)
		}
	}
	return nil
}
