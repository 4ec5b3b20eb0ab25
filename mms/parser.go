package mms

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	colFrameStart = "framestart"
	colFrameEnd   = "frameend"
	colDuration   = "duration"
	colTransition = "transition"
	holdName      = "HOLD"
)

// ParseOptions tune parsing. The zero value uses the defaults.
type ParseOptions struct {
	// CompoundTransitionRatio must be in [0, 1); zero selects
	// DefaultCompoundTransitionRatio.
	CompoundTransitionRatio float64
}

func (o ParseOptions) ratio() (float64, error) {
	r := o.CompoundTransitionRatio
	if r == 0 {
		return DefaultCompoundTransitionRatio, nil
	}
	if r < 0 || r >= 1 {
		return 0, fmt.Errorf("compound transition ratio %v: %w", r, ErrInvalidValue)
	}
	return r, nil
}

func ParseFile(path string, opts ParseOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads an MMS table. The first column holds the gloss name and the
// first row names the columns. Entries come back sorted by start frame with
// their original sequence indices.
func Parse(r io.Reader, opts ParseOptions) (*Table, error) {
	ratio, err := opts.ratio()
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("mms read: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table: %w", ErrMissingColumn)
	}

	columns := map[string]int{}
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}
	for _, c := range []string{colFrameStart, colFrameEnd} {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("%q: %w", c, ErrMissingColumn)
		}
	}

	t := &Table{Availability: availability(columns)}
	idx := 0
	for n, rec := range records[1:] {
		rw := row{columns: columns, cells: rec, line: n + 2}
		if rw.blank() {
			continue
		}
		glosses, err := rw.glosses(idx, ratio)
		if err != nil {
			return nil, err
		}
		t.Glosses = append(t.Glosses, glosses...)
		idx += len(glosses)
	}

	sort.SliceStable(t.Glosses, func(i, j int) bool {
		a, _ := t.Glosses[i].Frames()
		b, _ := t.Glosses[j].Frames()
		return a < b
	})
	return t, nil
}

func availability(columns map[string]int) Availability {
	has := func(c string) bool { _, ok := columns[c]; return ok }
	return Availability{
		AvailDomHandReloc:  has("domhandrelocx"),
		AvailNDomHandReloc: has("ndomhandrelocx"),
		AvailDomHandRot:    has("domhandrotx"),
		AvailNDomHandRot:   has("ndomhandrotx"),
		AvailTorso:         has("torsorelocax") && has("torsorelocx"),
		AvailHead:          has("headrotx"),
		AvailShoulders:     has("domshoulderrelocx"),
	}
}

// SplitName separates "category:name"; a bare name is a sign. Segments after
// a second colon are dropped, so "a:b:c" is gloss "b" of category "a".
func SplitName(s string) (Category, string) {
	parts := strings.Split(s, ":")
	if len(parts) == 1 {
		return CategorySigns, s
	}
	return Category(parts[0]), parts[1]
}

func isHold(name string) bool {
	open := strings.Index(name, "<")
	if open < 0 {
		return false
	}
	inner, _, ok := strings.Cut(name[open+1:], ">")
	return ok && inner == holdName
}

type row struct {
	columns map[string]int
	cells   []string
	line    int
}

// cell returns "" for missing columns and short rows.
func (r row) cell(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r row) float(name string) (*float64, error) {
	s := r.cell(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d column %q value %q: %w", r.line, name, s, ErrInvalidValue)
	}
	return &v, nil
}

// vec reads <prefix>x, <prefix>y, <prefix>z. All empty is nil, all set is a
// vector, anything else is ErrPartialVector.
func (r row) vec(prefix string) (*r3.Vec, error) {
	var vals [3]*float64
	set := 0
	for i, axis := range []string{"x", "y", "z"} {
		v, err := r.float(prefix + axis)
		if err != nil {
			return nil, err
		}
		if v != nil {
			set++
		}
		vals[i] = v
	}
	switch set {
	case 0:
		return nil, nil
	case 3:
		return &r3.Vec{X: *vals[0], Y: *vals[1], Z: *vals[2]}, nil
	}
	return nil, fmt.Errorf("line %d %q: %w", r.line, prefix, ErrPartialVector)
}

func (r row) duration() (*Duration, error) {
	s := r.cell(colDuration)
	if s == "" {
		return nil, nil
	}
	if strings.Contains(s, "%") {
		v, err := strconv.ParseFloat(strings.Trim(s, "% "), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d duration %q: %w", r.line, s, ErrInvalidValue)
		}
		ratio := v / 100
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("line %d duration %q: %w", r.line, s, ErrInvalidDuration)
		}
		return &Duration{Value: ratio, Relative: true}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d duration %q: %w", r.line, s, ErrInvalidValue)
	}
	return &Duration{Value: math.Ceil(v * FPS)}, nil
}

func (r row) inflection() (InflectionVector, error) {
	var v InflectionVector
	var err error
	read := func(dst **r3.Vec, prefix string) {
		if err == nil {
			*dst, err = r.vec(prefix)
		}
	}
	for _, d := range []Dominance{Dom, NDom} {
		h := &v.Hands[d.index()]
		read(&h.Reloc, string(d)+"handreloc")
		read(&h.RelocRot, string(d)+"handreloca")
		read(&h.RelocScale, string(d)+"handrelocs")
		read(&h.Rot, string(d)+"handrot")
		read(&v.Shoulders[d.index()], string(d)+"shoulderreloc")
	}
	read(&v.TorsoLoc, "torsoreloc")
	read(&v.TorsoRot, "torsoreloca")
	read(&v.HeadRot, "headrot")
	return v, err
}

// glosses converts one row into one entry, or several for a compound.
func (r row) glosses(idx int, ratio float64) ([]ParsedGloss, error) {
	category, name := SplitName(r.name())
	start, err := r.float(colFrameStart)
	if err != nil {
		return nil, err
	}
	end, err := r.float(colFrameEnd)
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, fmt.Errorf("line %d timing: %w", r.line, ErrMissingColumn)
	}
	dur, err := r.duration()
	if err != nil {
		return nil, err
	}
	transition, err := r.float(colTransition)
	if err != nil {
		return nil, err
	}
	infl, err := r.inflection()
	if err != nil {
		return nil, err
	}

	base := ParsedGloss{
		Key:        Key{Index: idx, Name: name},
		Category:   category,
		Timing:     Window{Start: *start, End: *end},
		Duration:   dur,
		Transition: transition,
		Inflection: infl,
	}
	if isHold(name) {
		base.Hold = true
		base.Category = CategoryHold
	}
	if category == CategorySigns || !strings.Contains(name, "-") {
		return []ParsedGloss{base}, nil
	}

	parts := SplitCompound(name, base.Timing, transition, ratio)
	out := make([]ParsedGloss, len(parts))
	for i, p := range parts {
		g := base
		g.Key = Key{Index: idx + i, Name: p.Name}
		g.Timing = p.Timing
		g.Transition = p.Transition
		out[i] = g
	}
	return out, nil
}

func (r row) name() string {
	if len(r.cells) == 0 {
		return ""
	}
	return strings.TrimSpace(r.cells[0])
}
