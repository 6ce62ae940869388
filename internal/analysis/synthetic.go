package analysis

import (
	"fmt"
	"math"
	"math/rand"

	"spider-pca/internal/legs"
	"spider-pca/internal/loader"
	"spider-pca/internal/markers"
	"spider-pca/internal/scores"
)

const (
	bodyHalfWidth = 0.01  // coxa offset from the midline, metres
	coxaSpacing   = 0.008 // fore-aft spacing between neighbouring coxae
	segmentLength = 0.02
	strideAmp     = 0.35 // radians
	liftAmp       = 0.004
	jitter        = 1e-4
	gaitPeriod    = 40 // frames per stride
)

// SyntheticSpider generates a walking spider for diagnostics and tests.
// Legs are named leg{id}_{segment} with the coxa last; two body markers
// frame the legs. Legs of a bilateral pair mirror each other across the
// lateral axis and alternate in phase, which gives the data a dominant
// stride component. The same seed always yields the same dataset.
func SyntheticSpider(frames int, a legs.Anatomy, seed int64) (*loader.Dataset, error) {
	if frames < 1 {
		return nil, fmt.Errorf("synthetic spider: %d frames: %w", frames, markers.ErrInvalidInput)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.LegPattern != "" {
		return nil, fmt.Errorf("synthetic spider: custom leg patterns are not supported: %w", markers.ErrInvalidInput)
	}
	k := a.KeypointsPerLeg
	if k == 0 {
		k = 4
	}

	side, slot := legSides(a)
	lateral := a.LateralAxis
	forward := (lateral + 1) % markers.Dims
	up := (lateral + 2) % markers.Dims

	names := []string{"body_front"}
	for l := 1; l <= a.NumLegs; l++ {
		for kp := 0; kp < k; kp++ {
			names = append(names, fmt.Sprintf("leg%d_%s", l, segmentName(kp, k, a.CoxaToken)))
		}
	}
	names = append(names, "body_rear")

	rng := rand.New(rand.NewSource(seed))
	x := markers.NewFrame(frames, len(names))
	meta := make([]scores.FrameMeta, frames)
	span := coxaSpacing * float64(maxSlot(slot)+1)

	for f := 0; f < frames; f++ {
		meta[f] = scores.FrameMeta{Time: float64(f), Condition: "low", Sequence: "synthetic"}
		if f >= frames/2 {
			meta[f].Condition = "high"
		}

		front := x.Marker(f, 0)
		front[forward] = span / 2
		rear := x.Marker(f, len(names)-1)
		rear[forward] = -span / 2

		for l := 0; l < a.NumLegs; l++ {
			phase := 2*math.Pi*float64(f)/gaitPeriod + math.Pi*float64((slot[l]+boolInt(side[l] < 0))%2)
			swing := strideAmp * math.Sin(phase)
			lift := liftAmp * math.Max(0, math.Cos(phase))

			var coxa [markers.Dims]float64
			coxa[forward] = span/2 - coxaSpacing*(float64(slot[l])+0.5)
			coxa[lateral] = side[l] * bodyHalfWidth

			base := 1 + l*k
			for kp := 0; kp < k; kp++ {
				// Distance from the coxa in segments; the coxa itself is the last keypoint.
				reach := float64(k - 1 - kp)
				p := x.Marker(f, base+kp)
				p[forward] = coxa[forward] + reach*segmentLength*math.Sin(swing)
				p[lateral] = coxa[lateral] + side[l]*reach*segmentLength*math.Cos(swing)
				p[up] = coxa[up] + reach*lift - reach*reach*0.001
				if kp < k-1 {
					for c := range p {
						p[c] += jitter * rng.NormFloat64()
					}
				}
			}
		}
	}
	return &loader.Dataset{Source: "synthetic", Names: names, Markers: x, Meta: meta}, nil
}

// legSides assigns each leg a lateral sign and a fore-aft slot. The second
// member of a bilateral pair sits on the negative side in its partner's slot.
func legSides(a legs.Anatomy) ([]float64, []int) {
	side := make([]float64, a.NumLegs)
	slot := make([]int, a.NumLegs)
	for l := range side {
		side[l] = 1
		slot[l] = l
	}
	for i, p := range a.BilateralPairs {
		slot[p[0]-1] = i
		slot[p[1]-1] = i
		side[p[1]-1] = -1
	}
	return side, slot
}

func segmentName(kp, k int, coxa string) string {
	if kp == k-1 {
		return coxa
	}
	if kp == 0 {
		return "tip"
	}
	return "seg" + string(rune('a'+kp-1))
}

func maxSlot(slot []int) int {
	m := 0
	for _, s := range slot {
		if s > m {
			m = s
		}
	}
	return m
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
