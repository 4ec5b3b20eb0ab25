package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	cfg "github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/host/memhost"
	"github.com/mmsplayer/mmsplayer/mms"
	"github.com/mmsplayer/mmsplayer/resample"
)

var handRotX = host.ChannelKey{Owner: "Bone_RightHand", Property: host.PropRotationEuler, Index: 0}

func writeGloss(t *testing.T, corpus, name string) {
	t.Helper()
	dir := filepath.Join(corpus, "signs", "trimmed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var a memhost.Asset
	a.Skeleton.Joints = []memhost.JointDef{
		{Name: "Bone_Pelvis", Tail: r3.Vec{Y: 0.2}},
		{Name: "Bone_Spine3", Parent: "Bone_Pelvis", Head: r3.Vec{Y: 0.2}, Tail: r3.Vec{Y: 0.6}},
		{Name: "Bone_RightHand", Parent: "Bone_Spine3", Head: r3.Vec{X: 0.3, Y: 0.6}, Tail: r3.Vec{X: 0.3, Y: 0.7}},
	}
	a.Animation = memhost.AssetAnimation{
		Name: name + "_action",
		Channels: []memhost.AssetChannel{
			{Joint: "Bone_RightHand", Property: host.PropRotationEuler, Index: 0, Keyframes: [][2]float64{{1, 0}, {31, 0.6}}},
			{Joint: "Bone_Pelvis", Property: host.PropLocation, Index: 1, Keyframes: [][2]float64{{1, 0}, {31, 0.3}}},
		},
	}
	if err := memhost.SaveAsset(filepath.Join(dir, name+".json"), &a); err != nil {
		t.Fatal(err)
	}
}

func writeTable(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newConfig(t *testing.T) *cfg.Root {
	t.Helper()
	c := cfg.Default()
	c.Paths.Corpus = t.TempDir()
	c.Paths.Outputs = t.TempDir()
	c.Paths.IgnoreList = filepath.Join("..", "assets", "ignorelist.json")
	writeGloss(t, c.Paths.Corpus, "HAUS")
	writeGloss(t, c.Paths.Corpus, "ICH")
	return c
}

func inflection(t *testing.T) *cfg.Inflection {
	t.Helper()
	in, err := cfg.LoadInflection(filepath.Join("..", "assets", "controller_config.json"))
	if err != nil {
		t.Fatal(err)
	}
	return in
}

const absoluteTable = "maingloss,framestart,frameend,domhandrotx,domhandroty,domhandrotz\n" +
	"HAUS,0,0.5,0,0,0.2\n" +
	"<HOLD>,0.5,1.0,,,\n" +
	"ICH,1.0,1.5,,,\n"

func TestRunAbsolute(t *testing.T) {
	ctx := context.Background()
	c := newConfig(t)
	h := memhost.New()

	res, err := NewPipeline(c, h, inflection(t)).Run(ctx, writeTable(t, absoluteTable))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []struct{ start, end float64 }{{1, 31}, {31, 61}, {61, 91}}
	if len(res.Placements) != len(want) {
		t.Fatalf("%d placements", len(res.Placements))
	}
	for i, w := range want {
		p := res.Placements[i]
		if p.Start != w.start || p.End != w.end || p.Skipped {
			t.Errorf("placement %d = %+v, want %v..%v", i, p, w.start, w.end)
		}
	}
	if p := res.Placements[1]; !p.Hold || p.Source != "inflected_0_HAUS" {
		t.Errorf("hold placement = %+v", p)
	}

	hold := res.Glosses[1]
	if hold.Original == nil || *hold.Original != *res.Glosses[0].Original {
		t.Errorf("hold ranges = %v, want those of HAUS", hold.Original)
	}

	if _, err := h.Joints(ctx, c.Scene.CanonicalSkeleton); err != nil {
		t.Errorf("canonical skeleton: %v", err)
	}
	if anim, _ := h.ActiveAnimation(ctx, c.Scene.CanonicalSkeleton); anim != c.Scene.FinalAction {
		t.Errorf("active animation = %q", anim)
	}

	b, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.SessionID != res.SessionID || rep.Mode != "absolute" || len(rep.Placements) != 3 || len(rep.Glosses) != 3 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Inflectors) != 1 || rep.Inflectors[0] != cfg.VariantLocalRotation+":Bone_RightHand" {
		t.Errorf("inflectors = %v", rep.Inflectors)
	}
	if rep.Glosses[1].HoldOf != (mms.Key{Index: 0, Name: "HAUS"}).String() {
		t.Errorf("hold_of = %q", rep.Glosses[1].HoldOf)
	}
	for _, i := range []int{0, 2} {
		if got := rep.Glosses[i].Targets; len(got) != 1 || got[0] != "Local Rotation Target for Bone_RightHand" {
			t.Errorf("gloss %d targets = %v", i, got)
		}
	}
	if got := rep.Glosses[1].Targets; len(got) != 0 {
		t.Errorf("hold targets = %v", got)
	}
}

func TestRunWithoutInflectionKeepsSource(t *testing.T) {
	ctx := context.Background()
	c := newConfig(t)
	c.Timing.WithoutInflection = true
	c.Paths.Outputs = ""
	h := memhost.New()

	res, err := NewPipeline(c, h, nil).Run(ctx, writeTable(t, absoluteTable))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ReportPath != "" {
		t.Errorf("report written to %s", res.ReportPath)
	}
	for _, f := range []float64{1, 16, 31} {
		got, err := h.Evaluate(ctx, c.Scene.FinalAction, handRotX, f)
		if err != nil {
			t.Fatal(err)
		}
		if want := 0.02 * (f - 1); math.Abs(got-want) > 1e-9 {
			t.Errorf("frame %v = %v, want %v", f, got, want)
		}
	}
	// ICH starts over from its own first sample
	if got, _ := h.Evaluate(ctx, c.Scene.FinalAction, handRotX, 61); math.Abs(got) > 1e-9 {
		t.Errorf("frame 61 = %v, want 0", got)
	}
}

func TestRunInflectionChangesHand(t *testing.T) {
	ctx := context.Background()
	plain := memhost.New()
	c := newConfig(t)
	c.Timing.WithoutInflection = true
	if _, err := NewPipeline(c, plain, nil).Run(ctx, writeTable(t, absoluteTable)); err != nil {
		t.Fatal(err)
	}

	inflected := memhost.New()
	c = newConfig(t)
	if _, err := NewPipeline(c, inflected, inflection(t)).Run(ctx, writeTable(t, absoluteTable)); err != nil {
		t.Fatal(err)
	}

	var diff float64
	for i := 0; i < 3; i++ {
		key := host.ChannelKey{Owner: "Bone_RightHand", Property: host.PropRotationEuler, Index: i}
		a, _ := plain.Evaluate(ctx, c.Scene.FinalAction, key, 10)
		b, _ := inflected.Evaluate(ctx, c.Scene.FinalAction, key, 10)
		diff += math.Abs(a - b)
	}
	if diff < 1e-6 {
		t.Error("hand rotation identical with and without inflection")
	}
}

func TestRunRelative(t *testing.T) {
	ctx := context.Background()
	c := newConfig(t)
	c.Timing.UseRelativeTime = true
	c.Timing.WithoutInflection = true

	table := "maingloss,framestart,frameend,duration,transition\n" +
		"HAUS,0,0.5,50%,\n" +
		"ICH,1.0,1.5,,0.25\n"
	res, err := NewPipeline(c, memhost.New(), nil).Run(ctx, writeTable(t, table))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := res.Placements[0]; p.Start != 1 || p.End != 16 {
		t.Errorf("first = %+v", p)
	}
	if p := res.Placements[1]; p.Start != 31 || p.End != 61 {
		t.Errorf("second = %+v", p)
	}
	if r := res.Glosses[0].Resampled; r == nil || r.End != 16 {
		t.Errorf("resampled = %v", r)
	}
}

func TestRunSingleFrameGloss(t *testing.T) {
	tests := []struct {
		name     string
		relative bool
		table    string
		start    float64
	}{
		{"zero percent duration", true, "maingloss,framestart,frameend,duration,transition\nHAUS,0,0.5,0%,\n", 1},
		{"one frame window", false, "maingloss,framestart,frameend\nHAUS,1.0,1.01\n", 61},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConfig(t)
			c.Timing.UseRelativeTime = tt.relative
			res, err := NewPipeline(c, memhost.New(), inflection(t)).Run(context.Background(), writeTable(t, tt.table))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if r := res.Glosses[0].Resampled; r == nil || r.Start != 1 || r.End != 1 {
				t.Errorf("resampled = %v, want 1..1", r)
			}
			if p := res.Placements[0]; p.Start != tt.start || p.End != tt.start {
				t.Errorf("placement = %+v", p)
			}
		})
	}
}

func TestRunInvertedWindow(t *testing.T) {
	c := newConfig(t)
	table := "maingloss,framestart,frameend\nHAUS,1.61,1.616\n"
	_, err := NewPipeline(c, memhost.New(), inflection(t)).Run(context.Background(), writeTable(t, table))
	if !errors.Is(err, resample.ErrTooFewSamples) {
		t.Errorf("err = %v, want ErrTooFewSamples", err)
	}
}

func TestRunIgnoreGlossDuration(t *testing.T) {
	ctx := context.Background()
	c := newConfig(t)
	c.Timing.IgnoreGlossDuration = true
	c.Timing.WithoutInflection = true

	table := "maingloss,framestart,frameend\nHAUS,0,0.5\n"
	res, err := NewPipeline(c, memhost.New(), nil).Run(ctx, writeTable(t, table))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	g := res.Glosses[0]
	if *g.Original != *g.Resampled {
		t.Errorf("ranges %v != %v", *g.Original, *g.Resampled)
	}
}

func TestRunRequiredInflectionMissing(t *testing.T) {
	c := newConfig(t)
	c.Timing.Require = []string{mms.AvailTorso}
	_, err := NewPipeline(c, memhost.New(), inflection(t)).Run(context.Background(), writeTable(t, absoluteTable))
	if !errors.Is(err, ErrInflectionUnavailable) {
		t.Errorf("err = %v, want ErrInflectionUnavailable", err)
	}
}

func TestRunMissingAsset(t *testing.T) {
	c := newConfig(t)
	table := "maingloss,framestart,frameend\nBAUM,0,0.5\n"
	_, err := NewPipeline(c, memhost.New(), nil).Run(context.Background(), writeTable(t, table))
	if !errors.Is(err, mms.ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestSelectTargetsOrder(t *testing.T) {
	in := inflection(t)
	av := mms.Availability{
		mms.AvailNDomHandRot:  true,
		mms.AvailDomHandReloc: true,
		mms.AvailShoulders:    true,
		mms.AvailTorso:        true,
	}
	got, err := selectTargets(av, in, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []cfg.Target{in.Torso, in.Shoulders.Dom, in.Shoulders.NDom, in.Hands.Dom.Loc, in.Hands.NDom.Rot}
	if len(got) != len(want) {
		t.Fatalf("got %d targets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got, _ := selectTargets(mms.Availability{}, in, nil); len(got) != 0 {
		t.Errorf("empty availability selected %d targets", len(got))
	}
}
