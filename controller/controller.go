// Package controller runs the per-gloss inflection: the baseline pose is
// copied to the inflected skeleton, controllers are driven from it, linked,
// inflected and finally baked.
package controller

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
	"github.com/mmsplayer/mmsplayer/targets"
)

type Controller struct {
	h       host.Host
	b       targets.Binding
	targets []targets.Target
	log     *logrus.Entry
}

// New builds one target per configuration entry, in order. The order is the
// order targets are driven and inflected in.
func New(ctx context.Context, h host.Host, cfgs []config.Target, b targets.Binding) (*Controller, error) {
	c := &Controller{
		h:   h,
		b:   b,
		log: logrus.WithFields(logrus.Fields{"gloss": b.Index, "skeleton": b.Skeleton}),
	}
	for _, cfg := range cfgs {
		t, err := targets.New(ctx, h, cfg, b)
		if err != nil {
			return nil, fmt.Errorf("gloss %d: %w", b.Index, err)
		}
		c.targets = append(c.targets, t)
	}
	return c, nil
}

func (c *Controller) Targets() []targets.Target { return c.targets }

// Run processes one gloss and returns the frame range of the inflected
// animation. Without inflection the captured baseline is left as is.
func (c *Controller) Run(ctx context.Context, v mms.InflectionVector, withoutInflection bool) (host.FrameRange, error) {
	start, end, err := c.capture(ctx)
	if err != nil {
		return host.FrameRange{}, fmt.Errorf("capture: %w", err)
	}
	if err := c.drive(ctx, start, end); err != nil {
		return host.FrameRange{}, fmt.Errorf("drive: %w", err)
	}
	for _, t := range c.targets {
		if err := t.AddConstraints(ctx); err != nil {
			return host.FrameRange{}, err
		}
		if !withoutInflection {
			t.Init(v)
		}
	}
	if withoutInflection {
		return host.FrameRange{Start: float64(start), End: float64(end)}, nil
	}
	return c.execute(ctx)
}

// capture copies the local joint values of the source skeleton, frame by
// frame, into the inflected animation.
func (c *Controller) capture(ctx context.Context) (int, int, error) {
	srcAnim, err := c.h.ActiveAnimation(ctx, c.b.Source)
	if err != nil {
		return 0, 0, err
	}
	r, err := c.h.FrameRange(ctx, srcAnim)
	if err != nil {
		return 0, 0, err
	}
	if err := c.h.SetActiveAnimation(ctx, c.b.Skeleton, c.b.Animation); err != nil {
		return 0, 0, err
	}
	joints, err := c.h.Joints(ctx, c.b.Source)
	if err != nil {
		return 0, 0, err
	}

	start, end := int(r.Start), int(r.End)
	for n := start; n <= end; n++ {
		f, err := c.h.SetFrame(ctx, n)
		if err != nil {
			return 0, 0, err
		}
		for _, j := range joints {
			p, err := c.h.Joint(ctx, f, c.b.Source, j)
			if err != nil {
				return 0, 0, err
			}
			if err := c.key(ctx, j, host.PropLocation, n, p.Location.X, p.Location.Y, p.Location.Z); err != nil {
				return 0, 0, err
			}
			if err := c.key(ctx, j, host.PropRotationEuler, n, p.Rotation.X, p.Rotation.Y, p.Rotation.Z); err != nil {
				return 0, 0, err
			}
		}
	}
	return start, end, nil
}

func (c *Controller) key(ctx context.Context, joint string, prop host.Property, frame int, vals ...float64) error {
	for i, v := range vals {
		key := host.ChannelKey{Owner: joint, Property: prop, Index: i}
		if err := c.h.InsertKeyframe(ctx, c.b.Animation, key, host.Keyframe{Frame: float64(frame), Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) drive(ctx context.Context, start, end int) error {
	for n := start; n <= end; n++ {
		f, err := c.h.SetFrame(ctx, n)
		if err != nil {
			return err
		}
		for _, t := range c.targets {
			if err := t.Drive(ctx, f); err != nil {
				return fmt.Errorf("%v: %w", t, err)
			}
		}
	}
	return nil
}

// execute inflects every frame of the inflected animation and bakes it.
func (c *Controller) execute(ctx context.Context) (host.FrameRange, error) {
	r, err := c.h.FrameRange(ctx, c.b.Animation)
	if err != nil {
		return host.FrameRange{}, err
	}
	start, stop := int(r.Start), int(r.End)
	c.log.WithFields(logrus.Fields{"start": start, "end": stop}).Info("inflecting")

	for n := start; n <= stop; n++ {
		f, err := c.h.SetFrame(ctx, n)
		if err != nil {
			return host.FrameRange{}, err
		}
		for _, t := range c.targets {
			if err := t.Inflect(ctx, f); err != nil {
				return host.FrameRange{}, fmt.Errorf("inflect %v at %d: %w", t, n, err)
			}
		}
	}
	if err := c.h.Bake(ctx, c.b.Skeleton, start, stop); err != nil {
		return host.FrameRange{}, fmt.Errorf("bake: %w", err)
	}
	return host.FrameRange{Start: float64(start), End: float64(stop)}, nil
}
