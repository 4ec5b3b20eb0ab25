package orchestrator

import (
	"fmt"

	"github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/glue"
	"github.com/mmsplayer/mmsplayer/mms"
)

type category struct {
	avail   string
	targets func(*config.Inflection) []config.Target
}

// categories in the order their targets are driven and inflected.
var categories = []category{
	{mms.AvailTorso, func(in *config.Inflection) []config.Target { return []config.Target{in.Torso} }},
	{mms.AvailHead, func(in *config.Inflection) []config.Target { return []config.Target{in.Head} }},
	{mms.AvailShoulders, func(in *config.Inflection) []config.Target {
		return []config.Target{in.Shoulders.Dom, in.Shoulders.NDom}
	}},
	{mms.AvailDomHandReloc, func(in *config.Inflection) []config.Target { return []config.Target{in.Hands.Dom.Loc} }},
	{mms.AvailDomHandRot, func(in *config.Inflection) []config.Target { return []config.Target{in.Hands.Dom.Rot} }},
	{mms.AvailNDomHandReloc, func(in *config.Inflection) []config.Target { return []config.Target{in.Hands.NDom.Loc} }},
	{mms.AvailNDomHandRot, func(in *config.Inflection) []config.Target { return []config.Target{in.Hands.NDom.Rot} }},
}

// selectTargets picks the target configurations the table has columns for.
// Missing categories are skipped unless listed in require.
func selectTargets(av mms.Availability, in *config.Inflection, require []string) ([]config.Target, error) {
	for _, r := range require {
		if !av[r] {
			return nil, fmt.Errorf("%q: %w", r, ErrInflectionUnavailable)
		}
	}
	var out []config.Target
	for _, c := range categories {
		if av[c.avail] {
			out = append(out, c.targets(in)...)
		}
	}
	return out, nil
}

func mode(t config.Timing) glue.Mode {
	if t.UseRelativeTime {
		return glue.Relative
	}
	return glue.Absolute
}

func modeName(m glue.Mode) string {
	if m == glue.Relative {
		return "relative"
	}
	return "absolute"
}
