package memhost

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/geom"
	"github.com/mmsplayer/mmsplayer/host"
)

// JointDef is the rest pose of one joint, in skeleton space. Joints are
// listed parents first.
type JointDef struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Head   r3.Vec `json:"head"`
	Tail   r3.Vec `json:"tail"`
}

type joint struct {
	JointDef
	length    float64
	localRest geom.Mat4
	parent    int
}

type skeleton struct {
	joints []joint
	index  map[string]int
	active string
}

type controller struct {
	skeleton string
	parent   string
	anim     string
}

// Link is an IK link as recorded by AttachIK.
type Link struct {
	Skeleton   string
	Joint      string
	Controller string
	Params     host.IKParams
}

// restMatrix orients the joint's +Y axis along head->tail.
func restMatrix(d JointDef) geom.Mat4 {
	return geom.Compose(d.Head, geom.RotationBetween(r3.Vec{Y: 1}, r3.Sub(d.Tail, d.Head)))
}

func newSkeleton(defs []JointDef) (*skeleton, error) {
	s := &skeleton{index: map[string]int{}}
	rest := make([]geom.Mat4, 0, len(defs))
	for i, d := range defs {
		if _, dup := s.index[d.Name]; dup {
			return nil, fmt.Errorf("joint %q: %w", d.Name, host.ErrExists)
		}
		j := joint{JointDef: d, length: r3.Norm(r3.Sub(d.Tail, d.Head)), parent: -1}
		r := restMatrix(d)
		j.localRest = r
		if d.Parent != "" {
			p, ok := s.index[d.Parent]
			if !ok {
				return nil, fmt.Errorf("parent %q of joint %q: %w", d.Parent, d.Name, host.ErrNotFound)
			}
			j.parent = p
			j.localRest = rest[p].AffineInverse().Mul(r)
		}
		s.index[d.Name] = i
		s.joints = append(s.joints, j)
		rest = append(rest, r)
	}
	return s, nil
}

func (s *skeleton) defs() []JointDef {
	out := make([]JointDef, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.JointDef
	}
	return out
}

func (h *Host) skeleton(name string) (*skeleton, error) {
	s, ok := h.skeletons[name]
	if !ok {
		return nil, fmt.Errorf("skeleton %q: %w", name, host.ErrNotFound)
	}
	return s, nil
}

// AddSkeleton registers a skeleton with a fresh empty animation of the same
// name, the way a scene file would provide one.
func (h *Host) AddSkeleton(name string, defs []JointDef) error {
	if _, ok := h.skeletons[name]; ok {
		return fmt.Errorf("skeleton %q: %w", name, host.ErrExists)
	}
	s, err := newSkeleton(defs)
	if err != nil {
		return fmt.Errorf("skeleton %q: %w", name, err)
	}
	if _, ok := h.anims[name]; !ok {
		h.anims[name] = newAnimation()
	}
	s.active = name
	h.skeletons[name] = s
	return nil
}

func (h *Host) DuplicateSkeleton(_ context.Context, src, name string) error {
	s, err := h.skeleton(src)
	if err != nil {
		return err
	}
	if _, ok := h.anims[name]; ok {
		return fmt.Errorf("animation %q: %w", name, host.ErrExists)
	}
	return h.AddSkeleton(name, s.defs())
}

func (h *Host) Joints(_ context.Context, skel string) ([]string, error) {
	s, err := h.skeleton(skel)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(s.joints))
	for i, j := range s.joints {
		names[i] = j.Name
	}
	return names, nil
}

func (h *Host) ActiveAnimation(_ context.Context, skel string) (string, error) {
	s, err := h.skeleton(skel)
	if err != nil {
		return "", err
	}
	return s.active, nil
}

func (h *Host) SetActiveAnimation(_ context.Context, skel, anim string) error {
	s, err := h.skeleton(skel)
	if err != nil {
		return err
	}
	if _, err := h.anim(anim); err != nil {
		return err
	}
	s.active = anim
	return nil
}

func vec(a *animation, owner string, prop host.Property, pos float64) r3.Vec {
	at := func(i int) float64 {
		return a.value(host.ChannelKey{Owner: owner, Property: prop, Index: i}, pos)
	}
	return r3.Vec{X: at(0), Y: at(1), Z: at(2)}
}

// pose evaluates every joint of s at pos using forward kinematics.
func (h *Host) pose(s *skeleton, pos float64) []host.JointPose {
	a := h.anims[s.active]
	if a == nil {
		a = newAnimation()
	}
	out := make([]host.JointPose, len(s.joints))
	for i, j := range s.joints {
		loc := vec(a, j.Name, host.PropLocation, pos)
		rot := vec(a, j.Name, host.PropRotationEuler, pos)
		m := j.localRest.Mul(geom.Compose(loc, geom.EulerZXY(rot)))
		if j.parent >= 0 {
			m = out[j.parent].Matrix.Mul(m)
		}
		out[i] = host.JointPose{
			Matrix:   m,
			Head:     m.Position(),
			Tail:     m.MulPoint(r3.Vec{Y: j.length}),
			Location: loc,
			Rotation: rot,
		}
	}
	return out
}

func (h *Host) Joint(_ context.Context, f host.Frame, skel, name string) (host.JointPose, error) {
	if err := h.check(f); err != nil {
		return host.JointPose{}, err
	}
	s, err := h.skeleton(skel)
	if err != nil {
		return host.JointPose{}, err
	}
	i, ok := s.index[name]
	if !ok {
		return host.JointPose{}, fmt.Errorf("joint %q of %q: %w", name, skel, host.ErrNotFound)
	}
	return h.pose(s, float64(f.Number()))[i], nil
}

func (h *Host) CreateController(_ context.Context, name, skel, parentJoint string) error {
	s, err := h.skeleton(skel)
	if err != nil {
		return err
	}
	if _, ok := s.index[parentJoint]; !ok {
		return fmt.Errorf("joint %q of %q: %w", parentJoint, skel, host.ErrNotFound)
	}
	if _, ok := h.controllers[name]; ok {
		return fmt.Errorf("controller %q: %w", name, host.ErrExists)
	}
	if _, ok := h.anims[name]; ok {
		return fmt.Errorf("animation %q: %w", name, host.ErrExists)
	}
	h.anims[name] = newAnimation()
	h.controllers[name] = &controller{skeleton: skel, parent: parentJoint, anim: name}
	return nil
}

func (h *Host) Controller(_ context.Context, f host.Frame, name string) (host.ControllerPose, error) {
	if err := h.check(f); err != nil {
		return host.ControllerPose{}, err
	}
	c, ok := h.controllers[name]
	if !ok {
		return host.ControllerPose{}, fmt.Errorf("controller %q: %w", name, host.ErrNotFound)
	}
	a := h.anims[c.anim]
	pos := float64(f.Number())
	at := func(i int) float64 {
		return a.value(host.ChannelKey{Property: host.PropRotationQuaternion, Index: i}, pos)
	}
	return host.ControllerPose{
		Location: vec(a, "", host.PropLocation, pos),
		Rotation: quat.Number{Real: at(0), Imag: at(1), Jmag: at(2), Kmag: at(3)},
	}, nil
}

func (h *Host) AttachIK(_ context.Context, skel, jointName, ctrl string, p host.IKParams) error {
	s, err := h.skeleton(skel)
	if err != nil {
		return err
	}
	if _, ok := s.index[jointName]; !ok {
		return fmt.Errorf("joint %q of %q: %w", jointName, skel, host.ErrNotFound)
	}
	if _, ok := h.controllers[ctrl]; !ok {
		return fmt.Errorf("controller %q: %w", ctrl, host.ErrNotFound)
	}
	for _, l := range h.links {
		if l.Skeleton == skel && l.Joint == jointName && l.Controller == ctrl {
			return nil
		}
	}
	h.links = append(h.links, Link{Skeleton: skel, Joint: jointName, Controller: ctrl, Params: p})
	return nil
}

// Links returns the IK links attached so far.
func (h *Host) Links() []Link {
	return append([]Link(nil), h.links...)
}

// Bake re-keys the evaluated local values of every joint. Links are left in
// place and not solved.
func (h *Host) Bake(_ context.Context, skel string, start, end int) error {
	s, err := h.skeleton(skel)
	if err != nil {
		return err
	}
	a, err := h.anim(s.active)
	if err != nil {
		return err
	}
	h.log.WithFields(logrus.Fields{"skeleton": skel, "start": start, "end": end}).Debug("bake")
	for n := start; n <= end; n++ {
		poses := h.pose(s, float64(n))
		for i, j := range s.joints {
			p := poses[i]
			for k, v := range [3]float64{p.Location.X, p.Location.Y, p.Location.Z} {
				a.ensure(host.ChannelKey{Owner: j.Name, Property: host.PropLocation, Index: k}).
					insert(host.Keyframe{Frame: float64(n), Value: v})
			}
			for k, v := range [3]float64{p.Rotation.X, p.Rotation.Y, p.Rotation.Z} {
				a.ensure(host.ChannelKey{Owner: j.Name, Property: host.PropRotationEuler, Index: k}).
					insert(host.Keyframe{Frame: float64(n), Value: v})
			}
		}
	}
	return nil
}
