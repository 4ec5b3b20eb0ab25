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

// ControllerName is the controller object created for a joint of gloss idx.
func ControllerName(bone string, idx int) string {
	return fmt.Sprintf("IK_CTRL_FOR_%s_%d", bone, idx)
}

// Trajectory moves an IK controller so the target joint's path is rotated and
// scaled about the first sampled position, then translated.
type Trajectory struct {
	base
	ctrl   string
	deltaT geom.Mat4
	deltaR geom.Mat4

	anchor *r3.Vec
	linked bool
}

func newTrajectory(ctx context.Context, b base) (*Trajectory, error) {
	t := &Trajectory{
		base:   b,
		ctrl:   ControllerName(b.cfg.Bone, b.b.Index),
		deltaT: geom.Identity(),
		deltaR: geom.Identity(),
	}
	if err := b.h.CreateController(ctx, t.ctrl, b.b.Skeleton, b.cfg.Root); err != nil {
		return nil, fmt.Errorf("controller %s: %w", t.ctrl, err)
	}
	return t, nil
}

// Controller is the name of the controller object.
func (t *Trajectory) Controller() string { return t.ctrl }

func (t *Trajectory) String() string { return "Trajectory Target for " + t.cfg.Bone }

func (t *Trajectory) Init(v mms.InflectionVector) {
	hand := v.Hand(t.dominance())
	t.deltaR = rotation(hand.RelocRot).Mul(scale(hand.RelocScale))
	t.deltaT = translation(hand.Reloc)
}

func (t *Trajectory) AddConstraints(ctx context.Context) error {
	if t.linked {
		return nil
	}
	p := host.IKParams{
		ChainLength: t.cfg.Constraints.ChainCount,
		UseRotation: t.cfg.Constraints.UseRotation,
		UseTail:     t.cfg.Constraints.UseTail,
	}
	if err := t.h.AttachIK(ctx, t.b.Skeleton, t.cfg.Bone, t.ctrl, p); err != nil {
		return fmt.Errorf("%v: %w", t, err)
	}
	t.linked = true
	return nil
}

type poseFunc func(tgt, root host.JointPose) (r3.Vec, quat.Number)

// followHead places the controller at the target joint's head with the
// joint's local rotation.
func followHead(tgt, root host.JointPose) (r3.Vec, quat.Number) {
	return r3.Add(tgt.Head, r3.Sub(root.Head, root.Tail)), geom.EulerZXY(tgt.Rotation)
}

func (t *Trajectory) Drive(ctx context.Context, f host.Frame) error {
	return t.drive(ctx, f, followHead)
}

// drive keys the controller, in root joint space, at the pose computed from
// the inflected skeleton.
func (t *Trajectory) drive(ctx context.Context, f host.Frame, pose poseFunc) error {
	tgt, root, err := t.pair(ctx, f, t.b.Skeleton)
	if err != nil {
		return err
	}
	loc, rot := pose(tgt, root)
	loc = root.Matrix.AffineInverse().MulPoint(loc)
	if err := keyLocation(ctx, t.h, t.ctrl, f.Number(), loc); err != nil {
		return err
	}
	return keyRotation(ctx, t.h, t.ctrl, f.Number(), rot)
}

// Inflect reads the baseline from the source skeleton.
func (t *Trajectory) Inflect(ctx context.Context, f host.Frame) error {
	tgt, root, err := t.pair(ctx, f, t.b.Source)
	if err != nil {
		return err
	}
	rootVec := r3.Sub(root.Head, root.Tail)
	head := root.Matrix.AffineInverse().MulPoint(r3.Add(tgt.Head, rootVec))
	if t.anchor == nil {
		a := head
		t.anchor = &a
	}
	m := t.deltaT.
		Mul(geom.Translation(*t.anchor)).
		Mul(t.deltaR).
		Mul(geom.Translation(r3.Scale(-1, *t.anchor)))
	return keyLocation(ctx, t.h, t.ctrl, f.Number(), m.MulPoint(head))
}

// RelativeLocRot shifts and turns the controller relative to its driven pose.
// Torso targets use the torso columns, shoulder targets the shoulder shift.
type RelativeLocRot struct {
	*Trajectory
	deltaO quat.Number
}

func (t *RelativeLocRot) String() string { return "Relative Location/Rotation Target for " + t.cfg.Bone }

func (t *RelativeLocRot) Init(v mms.InflectionVector) {
	switch t.cfg.IType {
	case config.TypeTorso:
		t.deltaT = translation(v.TorsoLoc)
		t.deltaO = orientation(v.TorsoRot)
	case config.TypeShoulder:
		t.deltaT = translation(v.Shoulder(t.dominance()))
	}
}

// followTail places the controller at the target joint's tail.
func followTail(tgt, root host.JointPose) (r3.Vec, quat.Number) {
	return r3.Add(tgt.Tail, r3.Sub(root.Head, root.Tail)), geom.EulerZXY(tgt.Rotation)
}

func (t *RelativeLocRot) Drive(ctx context.Context, f host.Frame) error {
	return t.drive(ctx, f, followTail)
}

func (t *RelativeLocRot) Inflect(ctx context.Context, f host.Frame) error {
	p, err := t.h.Controller(ctx, f, t.ctrl)
	if err != nil {
		return err
	}
	if err := keyLocation(ctx, t.h, t.ctrl, f.Number(), t.deltaT.MulPoint(p.Location)); err != nil {
		return err
	}
	return keyRotation(ctx, t.h, t.ctrl, f.Number(), quat.Mul(p.Rotation, t.deltaO))
}

// HeadRotation turns the controller by the head rotation only.
type HeadRotation struct {
	*Trajectory
	deltaO quat.Number
}

func (t *HeadRotation) String() string { return "Head Rotation Target for " + t.cfg.Bone }

func (t *HeadRotation) Init(v mms.InflectionVector) {
	t.deltaO = orientation(v.HeadRot)
}

// followTailRelative places the controller at the tail with the joint's rotation
// relative to the root.
func followTailRelative(tgt, root host.JointPose) (r3.Vec, quat.Number) {
	loc := r3.Add(tgt.Tail, r3.Sub(root.Head, root.Tail))
	return loc, relativeRotation(tgt, root)
}

func (t *HeadRotation) Drive(ctx context.Context, f host.Frame) error {
	return t.drive(ctx, f, followTailRelative)
}

func (t *HeadRotation) Inflect(ctx context.Context, f host.Frame) error {
	p, err := t.h.Controller(ctx, f, t.ctrl)
	if err != nil {
		return err
	}
	return keyRotation(ctx, t.h, t.ctrl, f.Number(), quat.Mul(p.Rotation, t.deltaO))
}
