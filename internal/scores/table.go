package scores

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"spider-pca/internal/markers"

	"gonum.org/v1/gonum/mat"
)

// FrameMeta is the experiment metadata of one score row.
type FrameMeta struct {
	Time      float64
	Condition string
	Sequence  string

	// Leg is the leg or bilateral group the row describes when legs are
	// pooled as samples; 0 for whole-body rows.
	Leg int
}

// ColumnNames are the headers used for the metadata columns.
type ColumnNames struct {
	Time      string
	Condition string
	Sequence  string
	Leg       string
}

// DefaultColumnNames matches the layout downstream plotting expects.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		Time:      "time_in_frames",
		Condition: "sq_level",
		Sequence:  "sequenceID",
		Leg:       "leg",
	}
}

// Table is a row-aligned join of scores and metadata with PC1..PCk columns.
type Table struct {
	scores *mat.Dense
	meta   []FrameMeta
	cols   int
}

// NewTable joins scores with one metadata record per row.
func NewTable(scores mat.Matrix, meta []FrameMeta) (*Table, error) {
	if scores == nil {
		return nil, fmt.Errorf("scores table: nil scores: %w", markers.ErrInvalidInput)
	}
	rows, cols := scores.Dims()
	if rows != len(meta) {
		return nil, fmt.Errorf("scores table: %d score rows but %d metadata rows: %w", rows, len(meta), markers.ErrInvalidInput)
	}
	return &Table{
		scores: mat.DenseCopyOf(scores),
		meta:   append([]FrameMeta(nil), meta...),
		cols:   cols,
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.meta) }

// Columns returns the score column names PC1..PCk.
func (t *Table) Columns() []string {
	out := make([]string, t.cols)
	for i := range out {
		out[i] = "PC" + strconv.Itoa(i+1)
	}
	return out
}

// Meta returns the metadata of row i.
func (t *Table) Meta(i int) FrameMeta { return t.meta[i] }

// PC returns the scores of component k, counting from 1 like the column names.
func (t *Table) PC(k int) ([]float64, error) {
	if k < 1 || k > t.cols {
		return nil, fmt.Errorf("scores table: PC%d outside PC1..PC%d: %w", k, t.cols, markers.ErrIndex)
	}
	if len(t.meta) == 0 {
		return []float64{}, nil
	}
	return mat.Col(nil, k-1, t.scores), nil
}

// Filter returns the rows whose metadata satisfies keep. The result keeps
// all score columns even when no row matches.
func (t *Table) Filter(keep func(FrameMeta) bool) *Table {
	var data []float64
	var meta []FrameMeta
	for i, m := range t.meta {
		if keep(m) {
			data = append(data, t.scores.RawRowView(i)...)
			meta = append(meta, m)
		}
	}
	out := &Table{meta: meta, cols: t.cols}
	if len(meta) > 0 {
		out.scores = mat.NewDense(len(meta), t.cols, data)
	} else {
		out.scores = &mat.Dense{}
	}
	return out
}

// Conditions returns the distinct condition levels in sorted order.
func (t *Table) Conditions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range t.meta {
		if !seen[m.Condition] {
			seen[m.Condition] = true
			out = append(out, m.Condition)
		}
	}
	sort.Strings(out)
	return out
}

// WriteCSV writes a header row followed by one row per score row. The leg
// column is only written when some row carries a leg.
func (t *Table) WriteCSV(w io.Writer, names ColumnNames) error {
	withLeg := false
	for _, m := range t.meta {
		if m.Leg != 0 {
			withLeg = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := append(t.Columns(), names.Condition, names.Sequence, names.Time)
	if withLeg {
		header = append(header, names.Leg)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, m := range t.meta {
		record := make([]string, 0, len(header))
		for _, v := range t.scores.RawRowView(i) {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record, m.Condition, m.Sequence, strconv.FormatFloat(m.Time, 'g', -1, 64))
		if withLeg {
			record = append(record, strconv.Itoa(m.Leg))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExpandPerLeg repeats each frame's metadata once per leg, matching the row
// order of a leg set viewed as samples (frame-major, leg-minor).
func ExpandPerLeg(meta []FrameMeta, legs int) []FrameMeta {
	out := make([]FrameMeta, 0, len(meta)*legs)
	for _, m := range meta {
		for l := 1; l <= legs; l++ {
			m.Leg = l
			out = append(out, m)
		}
	}
	return out
}

// Stack repeats the whole metadata list copies times, tagging each copy
// with Leg = copy index + 1. It matches the row order of sets stacked along
// the frame axis.
func Stack(meta []FrameMeta, copies int) []FrameMeta {
	out := make([]FrameMeta, 0, len(meta)*copies)
	for c := 1; c <= copies; c++ {
		for _, m := range meta {
			m.Leg = c
			out = append(out, m)
		}
	}
	return out
}
