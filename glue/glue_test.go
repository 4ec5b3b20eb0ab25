package glue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/host/memhost"
	"github.com/mmsplayer/mmsplayer/mms"
)

var rotX = host.ChannelKey{Owner: "Hand", Property: host.PropRotationEuler, Index: 0}

func setup(t *testing.T) (*memhost.Host, *Glue) {
	t.Helper()
	ctx := context.Background()
	h := memhost.New()
	if err := h.AddSkeleton("skeleton #5", []memhost.JointDef{{Name: "Hand", Tail: r3.Vec{Y: 1}}}); err != nil {
		t.Fatal(err)
	}
	g, err := New(ctx, h, "skeleton #5", "final_action")
	if err != nil {
		t.Fatal(err)
	}
	return h, g
}

// baked adds an animation with n samples at frames 1..n, value = offset+frame.
func baked(t *testing.T, h *memhost.Host, name string, n int, offset float64) {
	t.Helper()
	ctx := context.Background()
	if err := h.NewAnimation(ctx, name); err != nil {
		t.Fatal(err)
	}
	for f := 1; f <= n; f++ {
		if err := h.InsertKeyframe(ctx, name, rotX, host.Keyframe{Frame: float64(f), Value: offset + float64(f)}); err != nil {
			t.Fatal(err)
		}
	}
}

func asset(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gloss.json")
	if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func gloss(idx int, name, path string, start, end float64) mms.ResolvedGloss {
	return mms.ResolvedGloss{
		ParsedGloss: mms.ParsedGloss{
			Key:    mms.Key{Index: idx, Name: name},
			Timing: mms.Window{Start: start, End: end},
		},
		AssetPath: path,
	}
}

func TestPrepareChannels(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	if err := h.NewAnimation(ctx, "empty"); err != nil {
		t.Fatal(err)
	}
	if err := g.PrepareChannels(ctx, "empty"); !errors.Is(err, ErrNoChannels) {
		t.Errorf("err = %v, want ErrNoChannels", err)
	}
	baked(t, h, "a", 3, 0)
	if err := g.PrepareChannels(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if chans, _ := h.Channels(ctx, "final_action"); len(chans) != 1 || chans[0] != rotX {
		t.Errorf("channels = %v", chans)
	}
	if active, _ := h.ActiveAnimation(ctx, "skeleton #5"); active != "final_action" {
		t.Errorf("active = %q", active)
	}
}

func TestCombineOffsets(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	baked(t, h, "a", 10, 0)
	end, err := g.Combine(ctx, "a", 25)
	if err != nil {
		t.Fatal(err)
	}
	if end != 35 {
		t.Errorf("Combine returned %v, want 35", end)
	}
	kfs, _ := h.Keyframes(ctx, "final_action", rotX)
	if kfs[0].Frame != 25 || kfs[len(kfs)-1].Frame != 34 || kfs[0].Value != 1 {
		t.Errorf("keyframes span %+v .. %+v", kfs[0], kfs[len(kfs)-1])
	}
}

func TestHoldFreezesValue(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	baked(t, h, "a", 7, 0.25)
	end, err := g.Hold(ctx, "a", 40, 52)
	if err != nil {
		t.Fatal(err)
	}
	if end != 52 {
		t.Errorf("Hold returned %v", end)
	}
	kfs, _ := h.Keyframes(ctx, "final_action", rotX)
	if len(kfs) != 2 {
		t.Fatalf("%d keyframes, want 2", len(kfs))
	}
	for _, kf := range kfs {
		if kf.Value != 7.25 {
			t.Errorf("frame %v = %v, want 7.25", kf.Frame, kf.Value)
		}
	}
}

func TestMergeAbsoluteTwoGlosses(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	path := asset(t)
	baked(t, h, "inflected_0_A", 61, 0)
	baked(t, h, "inflected_1_B", 61, 100)

	placements, err := g.Merge(ctx, []Baked{
		{Gloss: gloss(0, "A", path, 0, 1), Animation: "inflected_0_A"},
		{Gloss: gloss(1, "B", path, 1, 2), Animation: "inflected_1_B"},
	}, Absolute)
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]float64{{1, 61}, {61, 121}}
	for i, p := range placements {
		if p.Start != want[i][0] || p.End != want[i][1] {
			t.Errorf("gloss %d placed at %v-%v, want %v", i, p.Start, p.End, want[i])
		}
	}
	kfs, _ := h.Keyframes(ctx, "final_action", rotX)
	last := kfs[len(kfs)-1]
	if last.Frame != 121 || last.Value != 161 {
		t.Errorf("last keyframe = %+v", last)
	}
	// The boundary frame is shared and the second gloss wins.
	if v, _ := h.Evaluate(ctx, "final_action", rotX, 61); v != 101 {
		t.Errorf("frame 61 = %v, want 101", v)
	}
}

func TestMergeFrameContinuity(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	path := asset(t)
	lengths := []int{31, 16, 46}
	var glosses []Baked
	var at float64
	sum := 0
	for i, n := range lengths {
		name := string(rune('A' + i))
		baked(t, h, name, n, 0)
		// n samples cover n-1 table frames.
		dur := float64(n-1) / mms.FPS
		glosses = append(glosses, Baked{Gloss: gloss(i, name, path, at, at+dur), Animation: name})
		at += dur
		sum += n - 1
	}
	placements, err := g.Merge(ctx, glosses, Absolute)
	if err != nil {
		t.Fatal(err)
	}
	last := placements[len(placements)-1].Written
	want := float64(sum + len(lengths))
	if d := last - want; d < -float64(len(lengths)) || d > float64(len(lengths)) {
		t.Errorf("last written frame %v, want %v within ±%d", last, want, len(lengths))
	}
}

func TestMergeDrift(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	baked(t, h, "short", 30, 0)
	_, err := g.Merge(ctx, []Baked{{Gloss: gloss(0, "A", asset(t), 0, 1), Animation: "short"}}, Absolute)
	if !errors.Is(err, ErrTimingDrift) {
		t.Errorf("err = %v, want ErrTimingDrift", err)
	}
}

func TestMergeSkipsMissingAsset(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	baked(t, h, "a", 61, 0)
	missing := filepath.Join(t.TempDir(), "gone.json")
	placements, err := g.Merge(ctx, []Baked{{Gloss: gloss(0, "A", missing, 0, 1), Animation: "a"}}, Absolute)
	if err != nil {
		t.Fatal(err)
	}
	if len(placements) != 1 || !placements[0].Skipped {
		t.Errorf("placements = %+v", placements)
	}
	if kfs, _ := h.Keyframes(ctx, "final_action", rotX); len(kfs) != 0 {
		t.Errorf("skipped gloss wrote %d keyframes", len(kfs))
	}
}

func TestMergeRelativeWithHold(t *testing.T) {
	ctx := context.Background()
	h, g := setup(t)
	path := asset(t)
	baked(t, h, "inflected_0_A", 16, 0)

	first := gloss(0, "A", path, 0, 0)
	first.Duration = &mms.Duration{Value: 0.5, Relative: true}
	first = first.WithFrameRanges(mms.FrameRange{Start: 1, End: 31}, mms.FrameRange{Start: 1, End: 16})

	tr := 0.25
	hold := gloss(1, "<HOLD>", path, 0, 0)
	hold.Hold = true
	hold.Transition = &tr
	hold.Duration = &mms.Duration{Value: 12}

	placements, err := g.Merge(ctx, []Baked{
		{Gloss: first, Animation: "inflected_0_A"},
		{Gloss: hold, Animation: "inflected_0_A"},
	}, Relative)
	if err != nil {
		t.Fatal(err)
	}
	if p := placements[0]; p.Start != 1 || p.End != 16 || p.Written != 17 {
		t.Errorf("first placement = %+v", p)
	}
	if p := placements[1]; p.Start != 31 || p.End != 43 || p.Written != 43 {
		t.Errorf("hold placement = %+v", p)
	}
	for _, f := range []float64{31, 43} {
		if v, _ := h.Evaluate(ctx, "final_action", rotX, f); v != 16 {
			t.Errorf("held frame %v = %v, want 16", f, v)
		}
	}
}
