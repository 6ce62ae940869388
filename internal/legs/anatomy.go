// Package legs partitions named marker arrays into per-leg keypoint sets and
// reassembles them, with the coxa-relative and bilateral transforms used to
// pool legs for analysis.
package legs

import (
	"fmt"
	"regexp"

	"spider-pca/internal/markers"
	"spider-pca/pkg/geometry"
)

// Anatomy describes the skeleton the marker names follow.
type Anatomy struct {
	// NumLegs is the number of legs, identified 1..NumLegs in marker names.
	NumLegs int `yaml:"num_legs" json:"num_legs" validate:"min=1"`

	// KeypointsPerLeg is the expected keypoint count per leg. Zero accepts
	// whatever count the names produce as long as it is uniform.
	KeypointsPerLeg int `yaml:"keypoints_per_leg" json:"keypoints_per_leg" validate:"min=0"`

	// CoxaToken marks the hinge marker of each leg by name.
	CoxaToken string `yaml:"coxa_token" json:"coxa_token" validate:"required"`

	// BilateralPairs lists (ipsilateral, contralateral) leg ids. The second
	// member of each pair is mirrored onto the first member's side.
	BilateralPairs [][2]int `yaml:"bilateral_pairs" json:"bilateral_pairs"`

	// LateralAxis is the coordinate negated by bilateral reflection.
	LateralAxis int `yaml:"lateral_axis" json:"lateral_axis" validate:"min=0,max=2"`

	// LegPattern optionally overrides leg-id detection. It must contain one
	// capture group matching the decimal leg id.
	LegPattern string `yaml:"leg_pattern,omitempty" json:"leg_pattern,omitempty"`
}

// DefaultAnatomy is the eight-legged, four-keypoint spider with legs 1-4 on
// one side and 5-8 on the other.
func DefaultAnatomy() Anatomy {
	return Anatomy{
		NumLegs:         8,
		KeypointsPerLeg: 4,
		CoxaToken:       "coxa",
		BilateralPairs:  [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}},
		LateralAxis:     geometry.AxisY,
	}
}

// Validate checks internal consistency.
func (a Anatomy) Validate() error {
	if a.NumLegs < 1 {
		return fmt.Errorf("anatomy: num_legs %d: %w", a.NumLegs, markers.ErrInvalidInput)
	}
	if a.KeypointsPerLeg < 0 {
		return fmt.Errorf("anatomy: keypoints_per_leg %d: %w", a.KeypointsPerLeg, markers.ErrInvalidInput)
	}
	if !geometry.ValidAxis(a.LateralAxis) {
		return fmt.Errorf("anatomy: lateral_axis %d: %w", a.LateralAxis, markers.ErrInvalidInput)
	}
	seen := make(map[int]bool)
	for _, p := range a.BilateralPairs {
		for _, id := range p {
			if id < 1 || id > a.NumLegs {
				return fmt.Errorf("anatomy: bilateral pair %v names leg %d outside 1..%d: %w",
					p, id, a.NumLegs, markers.ErrInvalidInput)
			}
			if seen[id] {
				return fmt.Errorf("anatomy: leg %d appears in more than one bilateral pair: %w", id, markers.ErrInvalidInput)
			}
			seen[id] = true
		}
	}
	if a.LegPattern != "" {
		if _, err := a.legPattern(); err != nil {
			return err
		}
	}
	return nil
}

var digitRuns = regexp.MustCompile(`\d+`)

func (a Anatomy) legPattern() (*regexp.Regexp, error) {
	if a.LegPattern == "" {
		return digitRuns, nil
	}
	re, err := regexp.Compile(a.LegPattern)
	if err != nil {
		return nil, fmt.Errorf("anatomy: leg_pattern: %v: %w", err, markers.ErrInvalidInput)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("anatomy: leg_pattern needs exactly one capture group, has %d: %w",
			re.NumSubexp(), markers.ErrInvalidInput)
	}
	return re, nil
}

// coversAllLegs reports whether every leg belongs to exactly one pair.
func (a Anatomy) coversAllLegs() bool {
	return 2*len(a.BilateralPairs) == a.NumLegs
}
