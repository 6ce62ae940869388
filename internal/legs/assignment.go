package legs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"spider-pca/internal/markers"
)

// Assignment maps every canonical marker to the leg it belongs to. It is
// built once per name list; leg membership comes from whole numbers in the
// name, so "leg10_tip" belongs to leg 10 and never to leg 1.
type Assignment struct {
	anatomy Anatomy
	index   *markers.NameIndex
	legOf   []int   // 0 for body markers
	byLeg   [][]int // marker columns of leg i+1 in canonical order
}

// NewAssignment classifies names against the anatomy. A name that mentions
// two different configured legs is rejected as ambiguous.
func NewAssignment(names []string, a Anatomy) (*Assignment, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	idx, err := markers.NewNameIndex(names)
	if err != nil {
		return nil, err
	}
	re, err := a.legPattern()
	if err != nil {
		return nil, err
	}

	as := &Assignment{
		anatomy: a,
		index:   idx,
		legOf:   make([]int, len(names)),
		byLeg:   make([][]int, a.NumLegs),
	}
	for i, name := range names {
		leg, err := legOfName(name, re, a.NumLegs, a.LegPattern != "")
		if err != nil {
			return nil, err
		}
		as.legOf[i] = leg
		if leg > 0 {
			as.byLeg[leg-1] = append(as.byLeg[leg-1], i)
		}
	}
	return as, nil
}

func legOfName(name string, re *regexp.Regexp, numLegs int, captured bool) (int, error) {
	leg := 0
	for _, m := range re.FindAllStringSubmatch(name, -1) {
		token := m[0]
		if captured {
			token = m[1]
		}
		id, err := strconv.Atoi(token)
		if err != nil || id < 1 || id > numLegs {
			continue
		}
		if leg != 0 && leg != id {
			return 0, fmt.Errorf("marker %q matches legs %d and %d: %w", name, leg, id, markers.ErrIndex)
		}
		leg = id
	}
	return leg, nil
}

// Names returns the canonical name index.
func (as *Assignment) Names() *markers.NameIndex { return as.index }

// Leg returns the leg id of a marker column, or 0 for a body marker.
func (as *Assignment) Leg(marker int) int { return as.legOf[marker] }

// LegMarkers returns the canonical columns of one leg in name order.
func (as *Assignment) LegMarkers(legID int) ([]int, error) {
	if legID < 1 || legID > as.anatomy.NumLegs {
		return nil, fmt.Errorf("leg %d outside 1..%d: %w", legID, as.anatomy.NumLegs, markers.ErrIndex)
	}
	return append([]int(nil), as.byLeg[legID-1]...), nil
}

// BodyMarkers returns the columns that belong to no leg.
func (as *Assignment) BodyMarkers() []int {
	var out []int
	for i, leg := range as.legOf {
		if leg == 0 {
			out = append(out, i)
		}
	}
	return out
}

// IsCoxa reports whether a marker name denotes a coxa.
func (a Anatomy) IsCoxa(name string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(a.CoxaToken))
}
