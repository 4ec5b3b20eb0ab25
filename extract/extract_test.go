package extract

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/host/memhost"
)

var defs = []memhost.JointDef{
	{Name: "Bone_Pelvis", Tail: r3.Vec{Y: 0.2}},
	{Name: "Bone_R_Finger1", Parent: "Bone_Pelvis", Head: r3.Vec{Y: 0.2}, Tail: r3.Vec{Y: 0.3}},
	{Name: "Bone_IK_Hand", Parent: "Bone_Pelvis", Head: r3.Vec{Y: 0.2}, Tail: r3.Vec{Y: 0.3}},
}

var (
	pelvisX = host.ChannelKey{Owner: "Bone_Pelvis", Property: host.PropLocation, Index: 0}
	pelvisZ = host.ChannelKey{Owner: "Bone_Pelvis", Property: host.PropRotationEuler, Index: 2}
)

// scene holds a reference moving the pelvis over frames 10..12 and an
// inflected copy doing the same over 1..3.
func scene(t *testing.T) *memhost.Host {
	t.Helper()
	ctx := context.Background()
	h := memhost.New()
	for skel, first := range map[string]float64{"reference": 10, "inflected_0_HAUS": 1} {
		if err := h.AddSkeleton(skel, defs); err != nil {
			t.Fatal(err)
		}
		for _, kf := range []host.Keyframe{{Frame: first, Value: 1.0}, {Frame: first + 2, Value: 1.2}} {
			if err := h.InsertKeyframe(ctx, skel, pelvisX, kf); err != nil {
				t.Fatal(err)
			}
		}
		if err := h.InsertKeyframe(ctx, skel, pelvisZ, host.Keyframe{Frame: first, Value: 0.5}); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

func keys(m map[string][3]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	h := scene(t)
	pairs := []Pair{{Gloss: "0_HAUS", Source: "inflected_0_HAUS", Target: "reference", Start: 10, End: 12}}

	data, err := Run(ctx, h, pairs, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e, ok := data["0_HAUS"]
	if !ok {
		t.Fatalf("data = %v", data)
	}
	if e.NumFrame != 3 || e.Source.Len() != 3 || e.Target.Len() != 3 {
		t.Fatalf("frames = %d, source %d, target %d", e.NumFrame, e.Source.Len(), e.Target.Len())
	}
	if e.Source.Gloss != "0_HAUS" || e.Target.Gloss != "0_HAUS" {
		t.Errorf("gloss names = %q, %q", e.Source.Gloss, e.Target.Gloss)
	}
	if got := keys(e.Target.Translation[0]); len(got) != 2 || got[0] != "Bone_Pelvis" || got[1] != "Bone_R_Finger1" {
		t.Errorf("joints = %v", got)
	}

	for i, want := range []float64{1.0, 1.1, 1.2} {
		for name, f := range map[string]Frames{"source": e.Source, "target": e.Target} {
			if got := f.Translation[i]["Bone_Pelvis"][0]; math.Abs(got-want) > 1e-9 {
				t.Errorf("%s frame %d x = %v, want %v", name, i, got, want)
			}
			if got := f.RotationEuler[i]["Bone_Pelvis"]; math.Abs(got[2]-0.5) > 1e-9 || math.Abs(got[0]) > 1e-9 {
				t.Errorf("%s frame %d euler = %v", name, i, got)
			}
			q := f.Rotation[i]["Bone_Pelvis"]
			if math.Abs(q[2]-math.Sin(0.25)) > 1e-9 || math.Abs(q[3]-math.Cos(0.25)) > 1e-9 {
				t.Errorf("%s frame %d quaternion = %v", name, i, q)
			}
		}
	}
}

func TestJointFilter(t *testing.T) {
	ctx := context.Background()
	h := scene(t)
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"all but IK", Options{}, []string{"Bone_Pelvis", "Bone_R_Finger1"}},
		{"without fingers", Options{WithoutFingers: true}, []string{"Bone_Pelvis"}},
		{"explicit", Options{Joints: []string{"Bone_IK_Hand"}}, []string{"Bone_IK_Hand"}},
		{"explicit without fingers", Options{Joints: []string{"Bone_R_Finger1", "Bone_Pelvis"}, WithoutFingers: true}, []string{"Bone_Pelvis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Sample(ctx, h, "reference", "x", 10, 11, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := keys(f.Translation[0])
			if len(got) != len(tt.want) {
				t.Fatalf("joints = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("joints = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	h := scene(t)
	tests := []struct {
		name string
		pair Pair
		want error
	}{
		{"inverted window", Pair{Gloss: "g", Source: "inflected_0_HAUS", Target: "reference", Start: 12, End: 10}, ErrEmptyWindow},
		{"missing target", Pair{Gloss: "g", Source: "inflected_0_HAUS", Target: "nope", Start: 1, End: 2}, host.ErrNotFound},
		{"missing source", Pair{Gloss: "g", Source: "nope", Target: "reference", Start: 1, End: 2}, host.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(ctx, h, []Pair{tt.pair}, Options{}); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
