// Package targets implements the inflection targets: the objects that turn a
// gloss's inflection vector into per-frame changes of the inflected skeleton.
//
// The set of variants is closed. LocalRotation rotates a joint directly;
// Trajectory, RelativeLocRot and HeadRotation drive an IK controller object
// parented to the root joint.
package targets

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/geom"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
)

// Binding names the host objects a target works on for one gloss.
type Binding struct {
	// Index is the gloss sequence index, used in controller names.
	Index int
	// Skeleton is the inflected copy targets write to.
	Skeleton string
	// Animation is the inflected animation of Skeleton.
	Animation string
	// Source is the resampled gloss skeleton the baseline pose is read from.
	Source string
}

// Target is implemented by the variants of this package only.
type Target interface {
	fmt.Stringer
	Config() config.Target
	// Init takes the deltas from the gloss's inflection vector. Absent
	// components leave an identity delta.
	Init(v mms.InflectionVector)
	// AddConstraints links the target joint to its controller. Calling it
	// again is a no-op.
	AddConstraints(ctx context.Context) error
	// Drive keys the controller with the pose of the inflected skeleton at f.
	Drive(ctx context.Context, f host.Frame) error
	// Inflect keys one inflected sample at f.
	Inflect(ctx context.Context, f host.Frame) error

	sealed()
}

// New builds the variant named by cfg.Target. Controller based variants
// create their controller object right away.
func New(ctx context.Context, h host.Host, cfg config.Target, b Binding) (Target, error) {
	common := base{h: h, cfg: cfg, b: b}
	switch cfg.Target {
	case config.VariantLocalRotation:
		return &LocalRotation{base: common}, nil
	case config.VariantTrajectory:
		t, err := newTrajectory(ctx, common)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.VariantRelativeLocRot:
		t, err := newTrajectory(ctx, common)
		if err != nil {
			return nil, err
		}
		return &RelativeLocRot{Trajectory: t, deltaO: geom.QuatIdentity()}, nil
	case config.VariantHeadRot:
		t, err := newTrajectory(ctx, common)
		if err != nil {
			return nil, err
		}
		return &HeadRotation{Trajectory: t, deltaO: geom.QuatIdentity()}, nil
	}
	return nil, fmt.Errorf("%q: %w", cfg.Target, ErrUnknownVariant)
}

type base struct {
	h   host.Host
	cfg config.Target
	b   Binding
}

func (t *base) Config() config.Target { return t.cfg }

func (*base) sealed() {}

func (t *base) dominance() mms.Dominance { return mms.Dominance(t.cfg.Dominance) }

// pair reads the target and root joints of skeleton.
func (t *base) pair(ctx context.Context, f host.Frame, skeleton string) (tgt, root host.JointPose, err error) {
	if tgt, err = t.h.Joint(ctx, f, skeleton, t.cfg.Bone); err != nil {
		return
	}
	root, err = t.h.Joint(ctx, f, skeleton, t.cfg.Root)
	return
}

func keyVec(ctx context.Context, h host.Host, anim, owner string, prop host.Property, frame int, vals ...float64) error {
	for i, v := range vals {
		key := host.ChannelKey{Owner: owner, Property: prop, Index: i}
		if err := h.InsertKeyframe(ctx, anim, key, host.Keyframe{Frame: float64(frame), Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func keyLocation(ctx context.Context, h host.Host, anim string, frame int, v r3.Vec) error {
	return keyVec(ctx, h, anim, "", host.PropLocation, frame, v.X, v.Y, v.Z)
}

func keyRotation(ctx context.Context, h host.Host, anim string, frame int, q quat.Number) error {
	return keyVec(ctx, h, anim, "", host.PropRotationQuaternion, frame, q.Real, q.Imag, q.Jmag, q.Kmag)
}

func translation(v *r3.Vec) geom.Mat4 {
	if v == nil {
		return geom.Identity()
	}
	return geom.Translation(*v)
}

func rotation(v *r3.Vec) geom.Mat4 {
	if v == nil {
		return geom.Identity()
	}
	return geom.FromQuat(geom.EulerZXY(*v))
}

func scale(v *r3.Vec) geom.Mat4 {
	if v == nil {
		return geom.Identity()
	}
	return geom.Scale(*v)
}

func orientation(v *r3.Vec) quat.Number {
	if v == nil {
		return geom.QuatIdentity()
	}
	return geom.EulerZXY(*v)
}
