// Package glue concatenates the baked gloss animations into the final
// timeline of the canonical skeleton.
package glue

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
)

// MaxDriftFrames is how far a merged gloss may end from its expected frame.
const MaxDriftFrames = 1

type Mode int

const (
	// Absolute places glosses at their table frames.
	Absolute Mode = iota
	// Relative chains glosses using the duration and transition columns.
	Relative
)

// Baked is a processed gloss ready to merge. For a HOLD, Animation is the
// animation of the gloss it holds.
type Baked struct {
	Gloss     mms.ResolvedGloss
	Animation string
}

// Placement records where a gloss landed on the timeline.
type Placement struct {
	Gloss   string  `json:"gloss"`
	Index   int     `json:"index"`
	Hold    bool    `json:"hold,omitempty"`
	Source  string  `json:"source"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Written float64 `json:"written"`
	Skipped bool    `json:"skipped,omitempty"`
}

type Glue struct {
	h        host.Host
	skeleton string
	action   string
	log      *logrus.Entry
}

// New creates the final action and makes it the active animation of the
// canonical skeleton.
func New(ctx context.Context, h host.Host, skeleton, action string) (*Glue, error) {
	if err := h.NewAnimation(ctx, action); err != nil {
		return nil, fmt.Errorf("final action: %w", err)
	}
	if err := h.SetActiveAnimation(ctx, skeleton, action); err != nil {
		return nil, fmt.Errorf("final action: %w", err)
	}
	return &Glue{
		h:        h,
		skeleton: skeleton,
		action:   action,
		log:      logrus.WithField("action", action),
	}, nil
}

func (g *Glue) Action() string { return g.action }

// PrepareChannels creates in the final action every channel of reference.
func (g *Glue) PrepareChannels(ctx context.Context, reference string) error {
	chans, err := g.h.Channels(ctx, reference)
	if err != nil {
		return err
	}
	if len(chans) == 0 {
		return fmt.Errorf("%s: %w", reference, ErrNoChannels)
	}
	for _, c := range chans {
		if err := g.h.EnsureChannel(ctx, g.action, c); err != nil {
			return err
		}
	}
	return nil
}

// Combine copies every sample of source shifted so its frame 1 lands on
// start. It returns the frame after the last one written.
func (g *Glue) Combine(ctx context.Context, source string, start float64) (float64, error) {
	r, err := g.h.FrameRange(ctx, source)
	if err != nil {
		return 0, err
	}
	g.log.WithFields(logrus.Fields{"source": source, "start": start, "range_start": r.Start, "range_end": r.End}).
		Debug("copying keyframes")
	chans, err := g.h.Channels(ctx, source)
	if err != nil {
		return 0, err
	}
	for _, c := range chans {
		kfs, err := g.h.Keyframes(ctx, source, c)
		if err != nil {
			return 0, err
		}
		for _, kf := range kfs {
			kf.Frame += start - 1
			if err := g.h.InsertKeyframe(ctx, g.action, c, kf); err != nil {
				return 0, err
			}
		}
	}
	return math.Trunc(r.End) + start, nil
}

// Hold writes the last sample of every channel of source at start and end.
func (g *Glue) Hold(ctx context.Context, source string, start, end float64) (float64, error) {
	g.log.WithFields(logrus.Fields{"source": source, "start": start, "end": end}).Info("hold")
	chans, err := g.h.Channels(ctx, source)
	if err != nil {
		return 0, err
	}
	for _, c := range chans {
		kfs, err := g.h.Keyframes(ctx, source, c)
		if err != nil {
			return 0, err
		}
		if len(kfs) == 0 {
			continue
		}
		last := kfs[len(kfs)-1].Value
		for _, f := range []float64{start, end} {
			if err := g.h.InsertKeyframe(ctx, g.action, c, host.Keyframe{Frame: f, Value: last}); err != nil {
				return 0, err
			}
		}
	}
	return end, nil
}

// window computes where a gloss goes. lastEnd is the expected end of the
// previous gloss.
func window(b Baked, mode Mode, lastEnd float64) (start, end float64) {
	g := b.Gloss
	if mode == Absolute {
		s, e := g.Frames()
		return float64(s + 1), float64(e + 1)
	}
	start = lastEnd + g.TransitionFrames()
	d := mms.Duration{Value: 1, Relative: true}
	if g.Duration != nil {
		d = *g.Duration
	}
	var span float64
	if g.Original != nil {
		span = g.Original.Span()
	}
	return start, start + d.Frames(span)
}

// Merge appends the glosses in order. A gloss whose asset has disappeared
// since resolution is logged and skipped.
func (g *Glue) Merge(ctx context.Context, glosses []Baked, mode Mode) ([]Placement, error) {
	lastEnd := 1.0
	out := make([]Placement, 0, len(glosses))
	for _, b := range glosses {
		p := Placement{
			Gloss:  b.Gloss.OutputName(),
			Index:  b.Gloss.Key.Index,
			Hold:   b.Gloss.Hold,
			Source: b.Animation,
		}
		log := g.log.WithField("gloss", p.Gloss)
		if !mms.Exists(b.Gloss.AssetPath) {
			log.WithField("path", b.Gloss.AssetPath).Warn("gloss asset missing at merge, skipping")
			p.Skipped = true
			out = append(out, p)
			continue
		}

		start, end := window(b, mode, lastEnd)
		p.Start, p.End = start, end
		log.WithFields(logrus.Fields{"start": start, "end": end}).Info("merging gloss")

		var written float64
		var err error
		if b.Gloss.Hold {
			written, err = g.Hold(ctx, b.Animation, start, end)
		} else {
			written, err = g.Combine(ctx, b.Animation, start)
		}
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", p.Gloss, err)
		}
		p.Written = written
		out = append(out, p)
		lastEnd = end

		if math.Abs(end-written) > MaxDriftFrames {
			return out, fmt.Errorf("gloss %s expected to end at %v, wrote up to %v: %w", p.Gloss, end, written, ErrTimingDrift)
		}
	}
	return out, nil
}
