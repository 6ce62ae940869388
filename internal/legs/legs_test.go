package legs

import (
	"fmt"
	"math/rand"
	"testing"

	"spider-pca/internal/markers"
	"spider-pca/pkg/geometry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var segments = []string{"tip", "tibia", "femur", "coxa"}

// spiderNames returns 8 legs x 4 keypoints with the coxa last, interleaved
// with the given body markers at the front.
func spiderNames(body ...string) []string {
	names := append([]string(nil), body...)
	for leg := 1; leg <= 8; leg++ {
		for _, seg := range segments {
			names = append(names, fmt.Sprintf("leg%d_%s", leg, seg))
		}
	}
	return names
}

// dyadicFrame fills a frame with values exactly representable in binary so
// add/subtract round trips are exact.
func dyadicFrame(rng *rand.Rand, frames, nMarkers int) markers.Frame {
	x := markers.NewFrame(frames, nMarkers)
	for i := range x.Data {
		x.Data[i] = float64(rng.Intn(4096)-2048) / 64
	}
	return x
}

func TestExtractAllLegsShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names := spiderNames()
	x := dyadicFrame(rng, 100, 32)

	set, canonical, err := ExtractAllLegs(names, x, DefaultAnatomy())
	require.NoError(t, err)

	assert.Equal(t, 100, set.Frames)
	assert.Equal(t, 8, set.Legs)
	assert.Equal(t, 4, set.Keypoints)
	assert.Len(t, set.Data, 100*8*4*3)
	assert.True(t, canonical.Equal(x))

	if diff := cmp.Diff([]string{"leg3_tip", "leg3_tibia", "leg3_femur", "leg3_coxa"}, set.Names[2]); diff != "" {
		t.Errorf("leg 3 names mismatch (-want +got):\n%s", diff)
	}
	// leg 3 femur is canonical marker 2*4+2.
	assert.Equal(t, x.Point(57, 10), set.Point(57, 2, 2))
}

func TestExtractLeg(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	names := spiderNames("body_front")
	x := dyadicFrame(rng, 5, len(names))

	leg, legNames, err := ExtractLeg(names, x, 8, DefaultAnatomy())
	require.NoError(t, err)
	assert.Equal(t, []string{"leg8_tip", "leg8_tibia", "leg8_femur", "leg8_coxa"}, legNames)
	assert.Equal(t, 4, leg.Markers)
	assert.Equal(t, x.Point(4, 29), leg.Point(4, 0))

	_, _, err = ExtractLeg(names, x, 9, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrIndex)

	_, _, err = ExtractLeg(names, markers.NewFrame(5, 3), 1, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	partial := []string{"body_front", "leg1_tip", "leg1_coxa"}
	_, _, err = ExtractLeg(partial, dyadicFrame(rng, 5, 3), 2, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrIndex)
}

func TestAssignmentUsesWholeNumbers(t *testing.T) {
	a := DefaultAnatomy()
	a.NumLegs = 10
	a.BilateralPairs = nil

	names := []string{"leg1_tip", "leg10_tip", "marker99", "body", "leg1_coxa"}
	as, err := NewAssignment(names, a)
	require.NoError(t, err)

	leg1, err := as.LegMarkers(1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, leg1)

	leg10, err := as.LegMarkers(10)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, leg10)

	assert.Equal(t, []int{2, 3}, as.BodyMarkers())
	assert.Equal(t, 0, as.Leg(2))
	assert.Equal(t, 10, as.Leg(1))
}

func TestAssignmentRejectsAmbiguousNames(t *testing.T) {
	_, err := NewAssignment([]string{"leg1_to_leg2"}, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrIndex)

	// The same leg mentioned twice is not ambiguous.
	_, err = NewAssignment([]string{"leg1_seg1"}, DefaultAnatomy())
	assert.NoError(t, err)
}

func TestAssignmentLegPattern(t *testing.T) {
	a := DefaultAnatomy()
	a.LegPattern = `^L(\d+)_`
	as, err := NewAssignment([]string{"L3_tip2", "cam2_marker", "L7_coxa"}, a)
	require.NoError(t, err)
	assert.Equal(t, 3, as.Leg(0))
	assert.Equal(t, 0, as.Leg(1))
	assert.Equal(t, 7, as.Leg(2))

	a.LegPattern = `L\d+`
	_, err = NewAssignment([]string{"L1"}, a)
	assert.ErrorIs(t, err, markers.ErrInvalidInput)

	a.LegPattern = `L(\d+`
	_, err = NewAssignment([]string{"L1"}, a)
	assert.ErrorIs(t, err, markers.ErrInvalidInput)
}

func TestExtractAllLegsErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	names := spiderNames()

	// Drop leg 8 entirely.
	short := names[:28]
	_, _, err := ExtractAllLegs(short, dyadicFrame(rng, 2, 28), DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrIndex)

	// Leg 8 loses one keypoint.
	uneven := names[:31]
	_, _, err = ExtractAllLegs(uneven, dyadicFrame(rng, 2, 31), DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	a := DefaultAnatomy()
	a.KeypointsPerLeg = 0
	_, _, err = ExtractAllLegs(uneven, dyadicFrame(rng, 2, 31), a)
	assert.ErrorIs(t, err, markers.ErrShape)

	_, _, err = ExtractAllLegs(names, dyadicFrame(rng, 2, 30), DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	dup := append(append([]string(nil), names...), "leg1_tip")
	_, _, err = ExtractAllLegs(dup, dyadicFrame(rng, 2, 33), DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrInvalidInput)
}

func TestRecomposeRoundTripWithOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	names := spiderNames("body_front", "body_back")
	x := dyadicFrame(rng, 12, len(names))

	set, canonical, err := ExtractAllLegs(names, x, DefaultAnatomy())
	require.NoError(t, err)

	back, err := Recompose(set, names, markers.Frame{}, &canonical, DefaultAnatomy())
	require.NoError(t, err)
	assert.True(t, back.Equal(x))
}

func TestRecomposeWithOriginalKeepsCoxaeFromOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	names := spiderNames("body_front")
	x := dyadicFrame(rng, 5, len(names))
	set, canonical, err := ExtractAllLegs(names, x, DefaultAnatomy())
	require.NoError(t, err)

	moved := set.Clone()
	for i := range moved.Data {
		moved.Data[i] += 1000
	}
	shift := geometry.Point3D{X: 1000, Y: 1000, Z: 1000}

	out, err := Recompose(moved, names, markers.Frame{}, &canonical, DefaultAnatomy())
	require.NoError(t, err)
	for m, name := range names {
		for f := 0; f < out.Frames; f++ {
			switch {
			case name == "body_front", DefaultAnatomy().IsCoxa(name):
				assert.Equal(t, x.Point(f, m), out.Point(f, m), "%s frame %d from original", name, f)
			default:
				assert.Equal(t, x.Point(f, m).Add(shift), out.Point(f, m), "%s frame %d from leg set", name, f)
			}
		}
	}
}

func TestRecomposeFromReference(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	names := spiderNames("body_front")
	x := dyadicFrame(rng, 6, len(names))
	set, _, err := ExtractAllLegs(names, x, DefaultAnatomy())
	require.NoError(t, err)

	// Perturb every keypoint so leg-set values are distinguishable.
	moved := set.Clone()
	for i := range moved.Data {
		moved.Data[i] += 1000
	}
	ref := dyadicFrame(rng, 1, len(names))

	out, err := Recompose(moved, names, ref, nil, DefaultAnatomy())
	require.NoError(t, err)
	require.Equal(t, 6, out.Frames)

	for m, name := range names {
		for f := 0; f < out.Frames; f++ {
			switch {
			case name == "body_front", DefaultAnatomy().IsCoxa(name):
				assert.Equal(t, ref.Point(0, m), out.Point(f, m), "%s frame %d from reference", name, f)
			default:
				assert.Equal(t, x.Point(f, m).X+1000, out.Point(f, m).X, "%s frame %d from leg set", name, f)
			}
		}
	}
}

func TestRecomposeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	names := spiderNames()
	x := dyadicFrame(rng, 3, len(names))
	set, _, err := ExtractAllLegs(names, x, DefaultAnatomy())
	require.NoError(t, err)

	_, err = Recompose(set, names, dyadicFrame(rng, 2, len(names)), nil, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	_, err = Recompose(set, names, dyadicFrame(rng, 1, 5), nil, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	wrongFrames := dyadicFrame(rng, 4, len(names))
	_, err = Recompose(set, names, markers.Frame{}, &wrongFrames, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	renamed := set.Clone()
	renamed.Names[0][0] = "ghost"
	_, err = Recompose(renamed, names, markers.Frame{}, &x, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrIndex)
}

func TestSetEqual(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	set, _, err := ExtractAllLegs(spiderNames(), dyadicFrame(rng, 3, 32), DefaultAnatomy())
	require.NoError(t, err)

	assert.True(t, set.Equal(set.Clone()))

	renamed := set.Clone()
	renamed.Names[7][3] = "leg8_hinge"
	assert.False(t, set.Equal(renamed))

	moved := set.Clone()
	moved.SetPoint(2, 5, 1, moved.Point(2, 5, 1).Add(geometry.Point3D{Z: 1}))
	assert.False(t, set.Equal(moved))

	short := set.Clone()
	short.Names = short.Names[:3]
	assert.False(t, set.Equal(short))
	assert.False(t, short.Equal(set))

	ragged := set.Clone()
	ragged.Names[2] = ragged.Names[2][:1]
	assert.False(t, set.Equal(ragged))
	assert.False(t, ragged.Equal(set))
}

func TestCoxaCenterInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	set, _, err := ExtractAllLegs(spiderNames(), dyadicFrame(rng, 20, 32), DefaultAnatomy())
	require.NoError(t, err)

	centered, coxa, err := CoxaCenter(set)
	require.NoError(t, err)
	assert.Equal(t, 20, coxa.Frames)
	assert.Equal(t, 8, coxa.Markers)

	for f := 0; f < 20; f++ {
		for l := 0; l < 8; l++ {
			assert.Equal(t, []float64{0, 0, 0}, centered.Keypoint(f, l, 3))
			assert.Equal(t, set.Point(f, l, 3), coxa.Point(f, l))
			// Distances between keypoints are preserved.
			assert.Equal(t, set.Point(f, l, 0).Distance(set.Point(f, l, 1)),
				centered.Point(f, l, 0).Distance(centered.Point(f, l, 1)))
		}
	}

	restored, err := Uncenter(centered, coxa)
	require.NoError(t, err)
	assert.True(t, restored.Equal(set))

	_, err = Uncenter(centered, markers.NewFrame(20, 7))
	assert.ErrorIs(t, err, markers.ErrShape)
}

func TestReflectBilateralInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	set, _, err := ExtractAllLegs(spiderNames(), dyadicFrame(rng, 10, 32), DefaultAnatomy())
	require.NoError(t, err)

	once, err := ReflectBilateral(set, DefaultAnatomy())
	require.NoError(t, err)
	for l := 0; l < 8; l++ {
		p, q := set.Point(4, l, 1), once.Point(4, l, 1)
		assert.Equal(t, p.X, q.X)
		assert.Equal(t, p.Z, q.Z)
		if l >= 4 {
			assert.Equal(t, -p.Y, q.Y, "leg %d is contralateral", l+1)
		} else {
			assert.Equal(t, p.Y, q.Y, "leg %d is ipsilateral", l+1)
		}
	}

	twice, err := ReflectBilateral(once, DefaultAnatomy())
	require.NoError(t, err)
	assert.True(t, twice.Equal(set))

	a := DefaultAnatomy()
	a.NumLegs = 6
	a.BilateralPairs = [][2]int{{1, 4}, {2, 5}, {3, 6}}
	_, err = ReflectBilateral(set, a)
	assert.ErrorIs(t, err, markers.ErrShape)
}

func TestCombineSplitBilateral(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	set, _, err := ExtractAllLegs(spiderNames(), dyadicFrame(rng, 7, 32), DefaultAnatomy())
	require.NoError(t, err)

	combined, err := CombineBilateral(set, DefaultAnatomy())
	require.NoError(t, err)
	assert.Equal(t, 14, combined.Frames)
	assert.Equal(t, 4, combined.Legs)
	assert.Equal(t, 4, combined.Keypoints)
	assert.Equal(t, set.Names[1], combined.Names[1])

	// Leg 6 (pair 2, contralateral) lands in the second half.
	assert.Equal(t, set.Point(3, 5, 2), combined.Point(7+3, 1, 2))
	assert.Equal(t, set.Point(3, 1, 2), combined.Point(3, 1, 2))

	split, err := SplitBilateral(combined, 7, set.Names, DefaultAnatomy())
	require.NoError(t, err)
	assert.True(t, split.Equal(set))

	_, err = SplitBilateral(combined, 6, set.Names, DefaultAnatomy())
	assert.ErrorIs(t, err, markers.ErrShape)

	partial := DefaultAnatomy()
	partial.BilateralPairs = partial.BilateralPairs[:2]
	_, err = CombineBilateral(set, partial)
	assert.ErrorIs(t, err, markers.ErrInvalidInput)
}

func TestSampleViews(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	set, _, err := ExtractAllLegs(spiderNames(), dyadicFrame(rng, 9, 32), DefaultAnatomy())
	require.NoError(t, err)

	samples := set.AsSamples()
	assert.Equal(t, 72, samples.Frames)
	assert.Equal(t, 4, samples.Markers)
	assert.Equal(t, set.Point(2, 5, 1), samples.Point(2*8+5, 1))

	back, err := SamplesToSet(samples, set.Names)
	require.NoError(t, err)
	assert.True(t, back.Equal(set))

	joined := set.AsFrame()
	assert.Equal(t, 9, joined.Frames)
	assert.Equal(t, 32, joined.Markers)
	again, err := FrameToSet(joined, set.Names)
	require.NoError(t, err)
	assert.True(t, again.Equal(set))

	leg := set.Leg(6)
	assert.Equal(t, set.Point(8, 6, 3), leg.Point(8, 3))

	_, err = SamplesToSet(markers.NewFrame(10, 4), set.Names)
	assert.ErrorIs(t, err, markers.ErrShape)
}

func TestAnatomyValidate(t *testing.T) {
	require.NoError(t, DefaultAnatomy().Validate())

	tests := []struct {
		name   string
		mutate func(*Anatomy)
	}{
		{"no legs", func(a *Anatomy) { a.NumLegs = 0 }},
		{"negative keypoints", func(a *Anatomy) { a.KeypointsPerLeg = -1 }},
		{"bad axis", func(a *Anatomy) { a.LateralAxis = 3 }},
		{"pair out of range", func(a *Anatomy) { a.BilateralPairs = [][2]int{{1, 9}} }},
		{"leg in two pairs", func(a *Anatomy) { a.BilateralPairs = [][2]int{{1, 5}, {5, 2}} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := DefaultAnatomy()
			tc.mutate(&a)
			assert.ErrorIs(t, a.Validate(), markers.ErrInvalidInput)
		})
	}
}
