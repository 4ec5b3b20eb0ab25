package mms

import "strings"

// SubGloss is one part of a compound row such as "R-E:1-5-9-7".
type SubGloss struct {
	Name string
	// Slice is the part's share of the row window. Consecutive slices
	// partition the row window.
	Slice      Window
	Timing     Window
	Transition *float64
}

// SplitCompound divides w evenly between the hyphen separated parts of name.
// Each part ends ratio*slice early and hands that time to the next part as
// its transition; the last part keeps the row transition.
func SplitCompound(name string, w Window, transition *float64, ratio float64) []SubGloss {
	names := strings.Split(name, "-")
	delta := (w.End - w.Start) / float64(len(names))
	out := make([]SubGloss, len(names))
	for i, n := range names {
		start := w.Start + delta*float64(i)
		end := w.Start + delta*float64(i+1)
		if i == len(names)-1 {
			end = w.End
		}
		tr := ratio * delta
		sg := SubGloss{
			Name:       n,
			Slice:      Window{Start: start, End: end},
			Timing:     Window{Start: start, End: w.Start + delta*float64(i+1) - tr},
			Transition: &tr,
		}
		if i == len(names)-1 {
			sg.Transition = transition
		}
		out[i] = sg
	}
	return out
}
