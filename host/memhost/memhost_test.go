package memhost

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/geom"
	"github.com/mmsplayer/mmsplayer/host"
)

func near(a, b r3.Vec) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

// arm is a two joint chain along +Y: shoulder (0..1) then forearm (1..2).
func arm() []JointDef {
	return []JointDef{
		{Name: "Shoulder", Head: r3.Vec{}, Tail: r3.Vec{Y: 1}},
		{Name: "Forearm", Parent: "Shoulder", Head: r3.Vec{Y: 1}, Tail: r3.Vec{Y: 2}},
	}
}

func TestCurveEvaluate(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.NewAnimation(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	key := host.ChannelKey{Owner: "j", Property: host.PropLocation, Index: 1}
	for _, kf := range []host.Keyframe{{Frame: 10, Value: 2}, {Frame: 1, Value: 0}, {Frame: 10, Value: 4}} {
		if err := h.InsertKeyframe(ctx, "a", key, kf); err != nil {
			t.Fatal(err)
		}
	}
	kfs, _ := h.Keyframes(ctx, "a", key)
	if len(kfs) != 2 {
		t.Fatalf("got %d keyframes, want 2 (same frame replaces)", len(kfs))
	}

	tests := []struct {
		pos, want float64
	}{
		{-5, 0}, {1, 0}, {5.5, 2}, {10, 4}, {20, 4},
	}
	for _, tt := range tests {
		got, err := h.Evaluate(ctx, "a", key, tt.pos)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}

	w, _ := h.Evaluate(ctx, "a", host.ChannelKey{Property: host.PropRotationQuaternion}, 3)
	if w != 1 {
		t.Errorf("missing quaternion w = %v, want 1", w)
	}
	r, _ := h.FrameRange(ctx, "a")
	if r.Start != 1 || r.End != 10 {
		t.Errorf("FrameRange = %+v", r)
	}
}

func TestEvaluateNonFinitePosition(t *testing.T) {
	ctx := context.Background()
	h := New()
	_ = h.NewAnimation(ctx, "a")
	key := host.ChannelKey{Owner: "j", Property: host.PropLocation, Index: 0}
	_ = h.InsertKeyframe(ctx, "a", key, host.Keyframe{Frame: 1, Value: 1})
	_ = h.InsertKeyframe(ctx, "a", key, host.Keyframe{Frame: 2, Value: 2})
	for _, pos := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := h.Evaluate(ctx, "a", key, pos); !errors.Is(err, ErrBadPosition) {
			t.Errorf("Evaluate(%v) err = %v, want ErrBadPosition", pos, err)
		}
	}
}

func TestStaleFrame(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.AddSkeleton("arm", arm()); err != nil {
		t.Fatal(err)
	}
	f1, _ := h.SetFrame(ctx, 1)
	if _, err := h.Joint(ctx, f1, "arm", "Forearm"); err != nil {
		t.Fatalf("current frame rejected: %v", err)
	}
	if _, err := h.SetFrame(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Joint(ctx, f1, "arm", "Forearm"); !errors.Is(err, host.ErrStaleFrame) {
		t.Errorf("err = %v, want ErrStaleFrame", err)
	}
}

func TestForwardKinematics(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.AddSkeleton("arm", arm()); err != nil {
		t.Fatal(err)
	}
	// Rotate the shoulder 90° about Z: the chain swings from +Y to -X.
	for i, v := range []float64{0, 0, math.Pi / 2} {
		key := host.ChannelKey{Owner: "Shoulder", Property: host.PropRotationEuler, Index: i}
		if err := h.InsertKeyframe(ctx, "arm", key, host.Keyframe{Frame: 1, Value: v}); err != nil {
			t.Fatal(err)
		}
	}
	f, _ := h.SetFrame(ctx, 1)
	fa, err := h.Joint(ctx, f, "arm", "Forearm")
	if err != nil {
		t.Fatal(err)
	}
	if !near(fa.Head, r3.Vec{X: -1}) || !near(fa.Tail, r3.Vec{X: -2}) {
		t.Errorf("forearm head %v tail %v", fa.Head, fa.Tail)
	}
	if fa.Rotation != (r3.Vec{}) {
		t.Errorf("forearm local rotation = %v, want zero", fa.Rotation)
	}
}

// controllerWorld is the skeleton-space transform of a controller at f.
func controllerWorld(ctx context.Context, h *Host, f host.Frame, name string) (geom.Mat4, error) {
	p, err := h.Controller(ctx, f, name)
	if err != nil {
		return geom.Mat4{}, err
	}
	c := h.controllers[name]
	parent, err := h.Joint(ctx, f, c.skeleton, c.parent)
	if err != nil {
		return geom.Mat4{}, err
	}
	return parent.Matrix.Mul(geom.Compose(p.Location, p.Rotation)), nil
}

func TestControllerWorld(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.AddSkeleton("arm", arm()); err != nil {
		t.Fatal(err)
	}
	if err := h.CreateController(ctx, "ctrl", "arm", "Forearm"); err != nil {
		t.Fatal(err)
	}
	if err := h.InsertKeyframe(ctx, "ctrl", host.ChannelKey{Property: host.PropLocation, Index: 1}, host.Keyframe{Frame: 1, Value: 0.5}); err != nil {
		t.Fatal(err)
	}
	f, _ := h.SetFrame(ctx, 1)
	p, err := h.Controller(ctx, f, "ctrl")
	if err != nil {
		t.Fatal(err)
	}
	if !geom.SameRotation(p.Rotation, geom.QuatIdentity(), 1e-12) {
		t.Errorf("default rotation = %v", p.Rotation)
	}
	m, err := controllerWorld(ctx, h, f, "ctrl")
	if err != nil {
		t.Fatal(err)
	}
	if !near(m.Position(), r3.Vec{Y: 1.5}) {
		t.Errorf("controller world position = %v, want (0, 1.5, 0)", m.Position())
	}
}

func TestAttachIKIdempotent(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.AddSkeleton("arm", arm()); err != nil {
		t.Fatal(err)
	}
	if err := h.CreateController(ctx, "ctrl", "arm", "Shoulder"); err != nil {
		t.Fatal(err)
	}
	p := host.IKParams{ChainLength: 2, UseTail: true}
	for i := 0; i < 2; i++ {
		if err := h.AttachIK(ctx, "arm", "Forearm", "ctrl", p); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.Links(); len(got) != 1 || got[0].Params != p {
		t.Errorf("links = %+v", got)
	}
}

func TestBakeKeepsForwardPose(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.AddSkeleton("arm", arm()); err != nil {
		t.Fatal(err)
	}
	key := host.ChannelKey{Owner: "Forearm", Property: host.PropRotationEuler, Index: 0}
	_ = h.InsertKeyframe(ctx, "arm", key, host.Keyframe{Frame: 1, Value: 0})
	_ = h.InsertKeyframe(ctx, "arm", key, host.Keyframe{Frame: 5, Value: 1})
	if err := h.Bake(ctx, "arm", 1, 5); err != nil {
		t.Fatal(err)
	}
	kfs, err := h.Keyframes(ctx, "arm", key)
	if err != nil {
		t.Fatal(err)
	}
	if len(kfs) != 5 {
		t.Fatalf("baked %d keyframes, want 5", len(kfs))
	}
	if math.Abs(kfs[2].Value-0.5) > 1e-12 {
		t.Errorf("frame 3 = %v, want 0.5", kfs[2].Value)
	}
	chans, _ := h.Channels(ctx, "arm")
	if len(chans) != 12 {
		t.Errorf("baked %d channels, want 12", len(chans))
	}
}

func TestLoadGloss(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "HAUS.json")
	a := &Asset{}
	a.Skeleton.Joints = arm()
	a.Animation = AssetAnimation{
		Name: "HAUS",
		Channels: []AssetChannel{
			{Joint: "Forearm", Property: host.PropRotationEuler, Index: 2, Keyframes: [][2]float64{{3, 0.1}, {9, 0.4}}},
		},
	}
	if err := SaveAsset(path, a); err != nil {
		t.Fatal(err)
	}

	h := New()
	name, err := h.LoadGloss(ctx, path, "0_HAUS")
	if err != nil {
		t.Fatal(err)
	}
	again, err := h.LoadGloss(ctx, path, "1_HAUS")
	if err != nil {
		t.Fatal(err)
	}
	if name != "HAUS" || again != "HAUS.001" {
		t.Errorf("animation names = %q, %q", name, again)
	}
	if active, _ := h.ActiveAnimation(ctx, "1_HAUS"); active != again {
		t.Errorf("active = %q, want %q", active, again)
	}
	r, _ := h.FrameRange(ctx, name)
	if r.Start != 3 || r.End != 9 {
		t.Errorf("range = %+v", r)
	}
	if _, err := h.LoadGloss(ctx, filepath.Join(t.TempDir(), "missing.json"), "x"); err == nil {
		t.Error("missing asset loaded")
	}
}
