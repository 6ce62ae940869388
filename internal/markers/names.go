package markers

import "fmt"

// NameIndex is the canonical ordered list of marker names. Column i of every
// Frame derived from the same recording holds the marker Names()[i].
type NameIndex struct {
	names []string
	pos   map[string]int
}

// NewNameIndex builds an index and rejects empty or duplicate names.
func NewNameIndex(names []string) (*NameIndex, error) {
	idx := &NameIndex{
		names: make([]string, len(names)),
		pos:   make(map[string]int, len(names)),
	}
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("marker %d has an empty name: %w", i, ErrInvalidInput)
		}
		if prev, dup := idx.pos[n]; dup {
			return nil, fmt.Errorf("marker name %q repeated at %d and %d: %w", n, prev, i, ErrInvalidInput)
		}
		idx.pos[n] = i
		idx.names[i] = n
	}
	return idx, nil
}

// Len returns the number of markers.
func (n *NameIndex) Len() int { return len(n.names) }

// Names returns a copy of the ordered names.
func (n *NameIndex) Names() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// Name returns the name at column i.
func (n *NameIndex) Name(i int) string { return n.names[i] }

// Index returns the column of a marker name.
func (n *NameIndex) Index(name string) (int, bool) {
	i, ok := n.pos[name]
	return i, ok
}

// Indices resolves a list of names to columns.
func (n *NameIndex) Indices(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, ok := n.pos[name]
		if !ok {
			return nil, fmt.Errorf("marker %q: %w", name, ErrIndex)
		}
		out[i] = idx
	}
	return out, nil
}

// CheckFrame verifies that f has one column per indexed name.
func (n *NameIndex) CheckFrame(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Markers != len(n.names) {
		return fmt.Errorf("frame has %d markers but %d names: %w", f.Markers, len(n.names), ErrShape)
	}
	return nil
}
