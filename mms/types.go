// Package mms models the MMS timing table: one row per gloss, carrying the
// timing window and the optional inflection parameters of that sign.
package mms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FPS is the fixed frame rate the table times are expressed against.
const FPS = 60

// DefaultCompoundTransitionRatio is the share of each compound sub-gloss slice
// given to the transition into the next sub-gloss.
const DefaultCompoundTransitionRatio = 0.3

// Category selects the gloss database section an animation is taken from.
type Category string

const (
	CategorySigns Category = "signs"
	CategoryHold  Category = "HOLD"
)

// Dominance names a hand or shoulder side.
type Dominance string

const (
	Dom  Dominance = "dom"
	NDom Dominance = "ndom"
)

func (d Dominance) index() int {
	if d == NDom {
		return 1
	}
	return 0
}

// Key identifies a gloss: its sequence index in the table plus its name.
type Key struct {
	Index int
	Name  string
}

func (k Key) String() string { return fmt.Sprintf("(%d, %s)", k.Index, k.Name) }

// Window is a start/end pair in seconds.
type Window struct {
	Start float64
	End   float64
}

// Frames converts the window to table frames: the start is rounded up and the
// end rounded down. A gloss shorter than one frame can come out inverted, for
// example (1.61, 1.616) gives (97, 96); callers see that as-is.
func (w Window) Frames() (start, end int) {
	return int(math.Ceil(w.Start * FPS)), int(math.Floor(w.End * FPS))
}

// Duration is the duration cell: either absolute (already in frames) or a
// ratio of the original gloss length.
type Duration struct {
	Value    float64
	Relative bool
}

// Frames resolves the duration against the pre-resample frame span of the
// gloss source.
func (d Duration) Frames(originalSpan float64) float64 {
	if d.Relative {
		return originalSpan * d.Value
	}
	return d.Value
}

// HandInflection groups the per-hand parameters. A nil vector means the
// component is absent for this gloss.
type HandInflection struct {
	Reloc      *r3.Vec // trajectory translation
	RelocRot   *r3.Vec // trajectory rotation, Euler ZXY
	RelocScale *r3.Vec // trajectory scale
	Rot        *r3.Vec // hand orientation, Euler ZXY
}

// InflectionVector holds every optional inflection parameter of one gloss.
type InflectionVector struct {
	Hands     [2]HandInflection
	Shoulders [2]*r3.Vec
	TorsoLoc  *r3.Vec
	TorsoRot  *r3.Vec
	HeadRot   *r3.Vec
}

func (v InflectionVector) Hand(d Dominance) HandInflection { return v.Hands[d.index()] }

func (v InflectionVector) Shoulder(d Dominance) *r3.Vec { return v.Shoulders[d.index()] }

// Availability records which inflection categories the table has columns for.
type Availability map[string]bool

const (
	AvailDomHandReloc  = "domhandreloc"
	AvailNDomHandReloc = "ndomhandreloc"
	AvailDomHandRot    = "domhandrot"
	AvailNDomHandRot   = "ndomhandrot"
	AvailTorso         = "torso"
	AvailHead          = "head"
	AvailShoulders     = "shoulders"
)

// ParsedGloss is one table entry as read from the file. It is not modified
// after parsing; resolution produces a ResolvedGloss instead.
type ParsedGloss struct {
	Key        Key
	Category   Category
	Hold       bool
	Timing     Window
	Duration   *Duration
	Transition *float64 // seconds
	Inflection InflectionVector
}

// OutputName is the per-gloss name used for skeletons and animations.
func (g ParsedGloss) OutputName() string {
	return fmt.Sprintf("%d_%s", g.Key.Index, g.Key.Name)
}

// Frames is Timing.Frames.
func (g ParsedGloss) Frames() (start, end int) { return g.Timing.Frames() }

// TransitionFrames is the relative-mode gap before this gloss, in frames.
func (g ParsedGloss) TransitionFrames() float64 {
	if g.Transition == nil {
		return 0
	}
	return math.Ceil(*g.Transition * FPS)
}

// Table is the parsed MMS, sorted by start frame.
type Table struct {
	Glosses      []ParsedGloss
	Availability Availability
}

// FrameRange is an inclusive animation frame range.
type FrameRange struct {
	Start float64
	End   float64
}

// Span is End-Start.
func (r FrameRange) Span() float64 { return r.End - r.Start }

// ResolvedGloss is a parsed gloss with its asset located and, once the gloss
// has been resampled, its frame ranges.
type ResolvedGloss struct {
	ParsedGloss
	AssetPath string
	// HoldOf is the entry a HOLD takes its path and pose from.
	HoldOf    *Key
	Original  *FrameRange
	Resampled *FrameRange
}

// WithFrameRanges returns a copy carrying the pre- and post-resample ranges.
func (g ResolvedGloss) WithFrameRanges(original, resampled FrameRange) ResolvedGloss {
	g.Original = &original
	g.Resampled = &resampled
	return g
}
