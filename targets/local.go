package targets

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/mmsplayer/mmsplayer/geom"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
)

// LocalRotation turns a joint relative to its root joint by writing the
// joint's own rotation channels. It has no controller.
type LocalRotation struct {
	base
	// deltaO is nil when the gloss has no hand rotation; the joint then
	// keeps its current rotation.
	deltaO *quat.Number
}

func (t *LocalRotation) String() string { return "Local Rotation Target for " + t.cfg.Bone }

func (t *LocalRotation) Init(v mms.InflectionVector) {
	t.deltaO = nil
	if r := v.Hand(t.dominance()).Rot; r != nil {
		q := geom.EulerZXY(*r)
		t.deltaO = &q
	}
}

func (*LocalRotation) AddConstraints(context.Context) error { return nil }

func (*LocalRotation) Drive(context.Context, host.Frame) error { return nil }

func (t *LocalRotation) Inflect(ctx context.Context, f host.Frame) error {
	tgt, root, err := t.pair(ctx, f, t.b.Skeleton)
	if err != nil {
		return err
	}
	euler := tgt.Rotation
	if t.deltaO != nil {
		srcTgt, srcRoot, err := t.pair(ctx, f, t.b.Source)
		if err != nil {
			return err
		}
		current := relativeRotation(srcTgt, srcRoot)
		euler = geom.ToEulerZXY(localRotation(tgt, root, quat.Mul(*t.deltaO, current)))
	}
	if err := keyVec(ctx, t.h, t.b.Animation, t.cfg.Bone, host.PropRotationEuler, f.Number(), euler.X, euler.Y, euler.Z); err != nil {
		return fmt.Errorf("%v: %w", t, err)
	}
	return nil
}

// relativeRotation is the rotation of tgt expressed in root's frame.
func relativeRotation(tgt, root host.JointPose) quat.Number {
	return quat.Mul(geom.Inverse(root.Matrix.Rotation()), tgt.Matrix.Rotation())
}

// localRotation converts a rotation relative to root into the local rotation
// to set on tgt.
func localRotation(tgt, root host.JointPose, rel quat.Number) quat.Number {
	q := quat.Mul(geom.EulerZXY(tgt.Rotation), geom.Inverse(tgt.Matrix.Rotation()))
	q = quat.Mul(q, root.Matrix.Rotation())
	return geom.Normalize(quat.Mul(q, rel))
}
