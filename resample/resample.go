// Package resample time-warps a gloss animation to a new number of frames by
// sampling the source curves at evenly spaced positions.
package resample

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
)

// Result reports the animation ranges before and after resampling.
type Result struct {
	Animation string
	Original  host.FrameRange
	Resampled host.FrameRange
}

// CountForWindow is the number of samples for a table window.
func CountForWindow(start, end int) int { return end - start + 1 }

// CountForDuration resolves a duration cell. Ratios apply to the original
// frame span of the gloss.
func CountForDuration(d mms.Duration, originalSpan float64) int {
	if d.Relative {
		return int(math.Ceil(d.Value*originalSpan + 1))
	}
	return int(d.Value)
}

// channels lists the per joint curves a resampled animation carries. Joints
// added for IK are skipped.
func channels(joints []string) []host.ChannelKey {
	var keys []host.ChannelKey
	for _, j := range joints {
		if strings.Contains(j, "IK") {
			continue
		}
		for _, p := range []host.Property{host.PropRotationEuler, host.PropLocation} {
			for i := 0; i < 3; i++ {
				keys = append(keys, host.ChannelKey{Owner: j, Property: p, Index: i})
			}
		}
	}
	return keys
}

// Resample replaces the active animation of skeleton with count samples
// written at frames 1..count. The source is kept as old_<name>. A count of one
// keeps only the first source frame.
func Resample(ctx context.Context, h host.Host, skeleton string, count int) (Result, error) {
	if count < 1 {
		return Result{}, fmt.Errorf("%s: count %d: %w", skeleton, count, ErrTooFewSamples)
	}
	name, err := h.ActiveAnimation(ctx, skeleton)
	if err != nil {
		return Result{}, err
	}
	orig, err := h.FrameRange(ctx, name)
	if err != nil {
		return Result{}, err
	}
	old := "old_" + name
	if err := h.RenameAnimation(ctx, name, old); err != nil {
		return Result{}, fmt.Errorf("resample %s: %w", name, err)
	}
	if err := h.NewAnimation(ctx, name); err != nil {
		return Result{}, fmt.Errorf("resample %s: %w", name, err)
	}

	joints, err := h.Joints(ctx, skeleton)
	if err != nil {
		return Result{}, err
	}
	keys := channels(joints)
	for _, k := range keys {
		if err := h.EnsureChannel(ctx, name, k); err != nil {
			return Result{}, err
		}
	}

	f0, f1 := math.Trunc(orig.Start), math.Trunc(orig.End)
	var ratio float64
	if count > 1 {
		ratio = (f1 - f0) / float64(count-1)
	}
	logrus.WithFields(logrus.Fields{
		"animation": name, "start": f0, "end": f1, "count": count, "ratio": ratio,
	}).Debug("resample")

	for i := 0; i < count; i++ {
		sample := f0 + float64(i)*ratio
		for _, k := range keys {
			v, err := h.Evaluate(ctx, old, k, sample)
			if err != nil {
				return Result{}, err
			}
			if err := h.InsertKeyframe(ctx, name, k, host.Keyframe{Frame: float64(i + 1), Value: v}); err != nil {
				return Result{}, err
			}
		}
	}

	if err := h.SetActiveAnimation(ctx, skeleton, name); err != nil {
		return Result{}, err
	}
	res, err := h.FrameRange(ctx, name)
	if err != nil {
		return Result{}, err
	}
	return Result{Animation: name, Original: orig, Resampled: res}, nil
}
