// Package memhost is an in-memory animation host. Curves are linear with
// constant extrapolation and joints use plain forward kinematics. IK links are
// recorded but never solved, so a bake reproduces the forward pose.
//
// A Host is not safe for concurrent use, which matches the single frame cursor
// the engine relies on.
package memhost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/host"
)

type curve struct {
	keys []host.Keyframe
}

func (c *curve) insert(kf host.Keyframe) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Frame >= kf.Frame })
	if i < len(c.keys) && c.keys[i].Frame == kf.Frame {
		c.keys[i].Value = kf.Value
		return
	}
	c.keys = append(c.keys, host.Keyframe{})
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = kf
}

func (c *curve) eval(pos, fallback float64) float64 {
	n := len(c.keys)
	switch {
	case n == 0, math.IsNaN(pos):
		return fallback
	case pos <= c.keys[0].Frame:
		return c.keys[0].Value
	case pos >= c.keys[n-1].Frame:
		return c.keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.keys[i].Frame > pos })
	a, b := c.keys[i-1], c.keys[i]
	t := (pos - a.Frame) / (b.Frame - a.Frame)
	return a.Value + (b.Value-a.Value)*t
}

type animation struct {
	channels map[host.ChannelKey]*curve
	order    []host.ChannelKey
}

func newAnimation() *animation {
	return &animation{channels: map[host.ChannelKey]*curve{}}
}

func (a *animation) ensure(key host.ChannelKey) *curve {
	c, ok := a.channels[key]
	if !ok {
		c = &curve{}
		a.channels[key] = c
		a.order = append(a.order, key)
	}
	return c
}

func (a *animation) value(key host.ChannelKey, pos float64) float64 {
	c, ok := a.channels[key]
	if !ok {
		return key.Property.Default(key.Index)
	}
	return c.eval(pos, key.Property.Default(key.Index))
}

// Host keeps all scene state in memory.
type Host struct {
	anims       map[string]*animation
	skeletons   map[string]*skeleton
	controllers map[string]*controller
	links       []Link

	frame int
	epoch uint64
	log   *logrus.Entry
}

var _ host.Host = (*Host)(nil)

func New() *Host {
	return &Host{
		anims:       map[string]*animation{},
		skeletons:   map[string]*skeleton{},
		controllers: map[string]*controller{},
		log:         logrus.WithField("host", "memory"),
	}
}

func (h *Host) anim(name string) (*animation, error) {
	a, ok := h.anims[name]
	if !ok {
		return nil, fmt.Errorf("animation %q: %w", name, host.ErrNotFound)
	}
	return a, nil
}

func (h *Host) NewAnimation(_ context.Context, name string) error {
	if _, ok := h.anims[name]; ok {
		return fmt.Errorf("animation %q: %w", name, host.ErrExists)
	}
	h.anims[name] = newAnimation()
	return nil
}

// RenameAnimation keeps skeleton and controller bindings pointing at the
// renamed data.
func (h *Host) RenameAnimation(_ context.Context, from, to string) error {
	a, err := h.anim(from)
	if err != nil {
		return err
	}
	if _, ok := h.anims[to]; ok {
		return fmt.Errorf("animation %q: %w", to, host.ErrExists)
	}
	delete(h.anims, from)
	h.anims[to] = a
	for _, s := range h.skeletons {
		if s.active == from {
			s.active = to
		}
	}
	for _, c := range h.controllers {
		if c.anim == from {
			c.anim = to
		}
	}
	return nil
}

func (h *Host) EnsureChannel(_ context.Context, anim string, key host.ChannelKey) error {
	a, err := h.anim(anim)
	if err != nil {
		return err
	}
	a.ensure(key)
	return nil
}

// Channels lists channels in creation order.
func (h *Host) Channels(_ context.Context, anim string) ([]host.ChannelKey, error) {
	a, err := h.anim(anim)
	if err != nil {
		return nil, err
	}
	return append([]host.ChannelKey(nil), a.order...), nil
}

func (h *Host) Keyframes(_ context.Context, anim string, key host.ChannelKey) ([]host.Keyframe, error) {
	a, err := h.anim(anim)
	if err != nil {
		return nil, err
	}
	c, ok := a.channels[key]
	if !ok {
		return nil, fmt.Errorf("channel %v of %q: %w", key, anim, host.ErrNotFound)
	}
	return append([]host.Keyframe(nil), c.keys...), nil
}

func (h *Host) InsertKeyframe(_ context.Context, anim string, key host.ChannelKey, kf host.Keyframe) error {
	a, err := h.anim(anim)
	if err != nil {
		return err
	}
	a.ensure(key).insert(kf)
	return nil
}

// ErrBadPosition is returned by Evaluate for NaN or infinite positions.
var ErrBadPosition = errors.New("non-finite frame position")

// Evaluate returns the property default for channels the animation lacks.
func (h *Host) Evaluate(_ context.Context, anim string, key host.ChannelKey, pos float64) (float64, error) {
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		return 0, fmt.Errorf("%s %v at %v: %w", anim, key, pos, ErrBadPosition)
	}
	a, err := h.anim(anim)
	if err != nil {
		return 0, err
	}
	return a.value(key, pos), nil
}

// FrameRange spans every keyframe of the animation; it is zero when there
// are none.
func (h *Host) FrameRange(_ context.Context, anim string) (host.FrameRange, error) {
	a, err := h.anim(anim)
	if err != nil {
		return host.FrameRange{}, err
	}
	var r host.FrameRange
	first := true
	for _, c := range a.channels {
		if len(c.keys) == 0 {
			continue
		}
		lo, hi := c.keys[0].Frame, c.keys[len(c.keys)-1].Frame
		if first || lo < r.Start {
			r.Start = lo
		}
		if first || hi > r.End {
			r.End = hi
		}
		first = false
	}
	return r, nil
}

func (h *Host) SetFrame(_ context.Context, n int) (host.Frame, error) {
	h.frame = n
	h.epoch++
	return host.PinFrame(n, h.epoch), nil
}

func (h *Host) check(f host.Frame) error {
	if f.Epoch() != h.epoch || f.Number() != h.frame {
		return fmt.Errorf("%v, current frame %d: %w", f, h.frame, host.ErrStaleFrame)
	}
	return nil
}
