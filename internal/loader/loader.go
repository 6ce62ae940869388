// Package loader reads marker tables exported from motion capture into
// frame arrays and metadata, and writes frame arrays back out.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"spider-pca/internal/markers"
	"spider-pca/internal/scores"

	"go.uber.org/zap"
)

const millimetresPerMetre = 1000

var axisSuffixes = [markers.Dims]string{"_x", "_y", "_z"}

// Options controls which rows and columns Load keeps.
type Options struct {
	// Species keeps only rows whose SpeciesColumn equals it. Empty keeps all.
	Species       string `yaml:"species" json:"species"`
	SpeciesColumn string `yaml:"species_column" json:"species_column"`

	// ExcludeCenter drops markers whose name contains "center".
	ExcludeCenter bool `yaml:"exclude_center" json:"exclude_center"`

	// RemoveNaN drops rows with an empty or NaN field in any column.
	RemoveNaN bool `yaml:"remove_nan" json:"remove_nan"`

	// RescaleMetres divides coordinates by 1000 (millimetres to metres).
	RescaleMetres bool `yaml:"rescale_metres" json:"rescale_metres"`

	TimeColumn      string `yaml:"time_column" json:"time_column"`
	SequenceColumn  string `yaml:"sequence_column" json:"sequence_column"`
	ConditionColumn string `yaml:"condition_column" json:"condition_column"`
}

// DefaultOptions mirrors the usual export: millimetres, NaN gaps, and a
// body-center marker that is not part of the analysis.
func DefaultOptions() Options {
	return Options{
		SpeciesColumn:   "species",
		ExcludeCenter:   true,
		RemoveNaN:       true,
		RescaleMetres:   true,
		TimeColumn:      "time_in_frames",
		SequenceColumn:  "filename",
		ConditionColumn: "sq_level",
	}
}

// Dataset is a loaded marker table.
type Dataset struct {
	Source  string
	Names   []string
	Markers markers.Frame
	Meta    []scores.FrameMeta

	// Dropped counts rows removed for missing values.
	Dropped int
}

// Load reads a marker table from a CSV file.
func Load(path string, opts Options, log *zap.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening marker table: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, opts, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Source = path
	return ds, nil
}

// Read parses a marker table. Marker columns are named {marker}_x,
// {marker}_y, {marker}_z and must appear in that order.
func Read(r io.Reader, opts Options, log *zap.Logger) (*Dataset, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}

	names, markerCols, err := markerColumns(header, opts.ExcludeCenter)
	if err != nil {
		return nil, err
	}

	speciesCol := -1
	if opts.Species != "" {
		i, ok := columns[opts.SpeciesColumn]
		if !ok {
			return nil, fmt.Errorf("species filter needs column %q: %w", opts.SpeciesColumn, markers.ErrInvalidInput)
		}
		speciesCol = i
	}
	timeCol := lookup(columns, opts.TimeColumn)
	seqCol := lookup(columns, opts.SequenceColumn)
	condCol := lookup(columns, opts.ConditionColumn)

	var (
		data    []float64
		meta    []scores.FrameMeta
		dropped int
		total   int
		rowNum  = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if speciesCol >= 0 && record[speciesCol] != opts.Species {
			continue
		}
		total++
		if opts.RemoveNaN && hasMissing(record) {
			dropped++
			continue
		}

		for _, c := range markerCols {
			v, err := parseValue(record[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %v: %w", rowNum, header[c], err, markers.ErrInvalidInput)
			}
			data = append(data, v)
		}

		m := scores.FrameMeta{Time: float64(len(meta))}
		if timeCol >= 0 {
			t, err := parseValue(record[timeCol])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %v: %w", rowNum, header[timeCol], err, markers.ErrInvalidInput)
			}
			m.Time = t
		}
		if seqCol >= 0 {
			m.Sequence = record[seqCol]
		}
		if condCol >= 0 {
			m.Condition = record[condCol]
		}
		meta = append(meta, m)
	}

	if opts.Species != "" {
		log.Info("filtered marker table by species", zap.String("species", opts.Species), zap.Int("rows", total))
	}
	if dropped > 0 {
		log.Info("dropped rows with missing values",
			zap.Int("dropped", dropped), zap.Int("remaining", len(meta)))
	}
	if len(meta) == 0 {
		return nil, fmt.Errorf("no usable rows: %w", markers.ErrInvalidInput)
	}

	x := markers.Frame{Frames: len(meta), Markers: len(names), Data: data}
	if opts.RescaleMetres {
		for i := range x.Data {
			x.Data[i] /= millimetresPerMetre
		}
		log.Debug("rescaled marker data to metres")
	}
	return &Dataset{Names: names, Markers: x, Meta: meta, Dropped: dropped}, nil
}

// markerColumns finds the {marker}_x/_y/_z column triples in header order.
func markerColumns(header []string, excludeCenter bool) ([]string, []int, error) {
	var cols []int
	for i, h := range header {
		h = strings.TrimSpace(h)
		if axisOf(h) < 0 {
			continue
		}
		if excludeCenter && strings.Contains(h, "center") {
			continue
		}
		cols = append(cols, i)
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("no marker coordinate columns: %w", markers.ErrShape)
	}
	if len(cols)%markers.Dims != 0 {
		return nil, nil, fmt.Errorf("%d coordinate columns do not form x/y/z triples: %w", len(cols), markers.ErrShape)
	}

	names := make([]string, 0, len(cols)/markers.Dims)
	for i := 0; i < len(cols); i += markers.Dims {
		base := strings.TrimSuffix(strings.TrimSpace(header[cols[i]]), axisSuffixes[0])
		for c := 0; c < markers.Dims; c++ {
			if strings.TrimSpace(header[cols[i+c]]) != base+axisSuffixes[c] {
				return nil, nil, fmt.Errorf("column %q breaks the %s x/y/z triple: %w",
					header[cols[i+c]], base, markers.ErrShape)
			}
		}
		names = append(names, base)
	}
	return names, cols, nil
}

func axisOf(column string) int {
	for i, s := range axisSuffixes {
		if strings.HasSuffix(column, s) {
			return i
		}
	}
	return -1
}

func lookup(columns map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := columns[name]; ok {
		return i
	}
	return -1
}

func hasMissing(record []string) bool {
	for _, f := range record {
		f = strings.TrimSpace(f)
		if f == "" || strings.EqualFold(f, "nan") {
			return true
		}
	}
	return false
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteMarkers writes frames as a marker table with a leading frame column
// and {marker}_x/_y/_z columns in name order.
func WriteMarkers(w io.Writer, names []string, x markers.Frame) error {
	if err := x.Validate(); err != nil {
		return err
	}
	if len(names) != x.Markers {
		return fmt.Errorf("%d names for %d markers: %w", len(names), x.Markers, markers.ErrShape)
	}
	cw := csv.NewWriter(w)
	header := make([]string, 0, 1+len(names)*markers.Dims)
	header = append(header, "frame")
	for _, n := range names {
		for _, s := range axisSuffixes {
			header = append(header, n+s)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for f := 0; f < x.Frames; f++ {
		record[0] = strconv.Itoa(f)
		for i, v := range x.Data[f*x.Markers*markers.Dims : (f+1)*x.Markers*markers.Dims] {
			record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
