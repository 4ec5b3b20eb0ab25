// Package extract samples joint transforms of inflected glosses next to a
// reference performance so the two can be compared offline.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/geom"
	"github.com/mmsplayer/mmsplayer/host"
)

// Frames holds per-frame joint data in skeleton space, one map per frame.
type Frames struct {
	Gloss         string                  `json:"gloss_name"`
	Rotation      []map[string][4]float64 `json:"rotation"`       // quaternion x, y, z, w
	Translation   []map[string][3]float64 `json:"translation"`
	RotationEuler []map[string][3]float64 `json:"rotation_euler"` // X-Y-Z order
}

// Len is the number of sampled frames.
func (f Frames) Len() int { return len(f.Rotation) }

type Entry struct {
	NumFrame int    `json:"num_frame"`
	Source   Frames `json:"source"`
	Target   Frames `json:"target"`
}

// Data is keyed by gloss output name and is written as evaluation_data.json.
type Data map[string]Entry

// Pair matches an inflected skeleton, read from frame 1, with the window
// Start..End (inclusive) of a reference skeleton.
type Pair struct {
	Gloss  string
	Source string
	Target string
	Start  int
	End    int
}

type Options struct {
	// Joints restricts the sampled joints. Empty means every joint of the
	// skeleton except IK helpers.
	Joints []string
	// WithoutFingers drops finger joints.
	WithoutFingers bool
}

func (o Options) filter(all []string) []string {
	allowed := map[string]bool{}
	for _, j := range o.Joints {
		allowed[j] = true
	}
	out := make([]string, 0, len(all))
	for _, j := range all {
		switch {
		case len(allowed) > 0 && !allowed[j]:
		case len(allowed) == 0 && strings.Contains(j, "IK"):
		case o.WithoutFingers && strings.Contains(j, "Finger"):
		default:
			out = append(out, j)
		}
	}
	return out
}

// Sample reads the joints of skeleton for frames start..end-1 from its active
// animation.
func Sample(ctx context.Context, s host.Scene, skeleton, gloss string, start, end int, opts Options) (Frames, error) {
	if end <= start {
		return Frames{}, fmt.Errorf("%s frames %d..%d: %w", skeleton, start, end, ErrEmptyWindow)
	}
	all, err := s.Joints(ctx, skeleton)
	if err != nil {
		return Frames{}, err
	}
	joints := opts.filter(all)
	out := Frames{Gloss: gloss}
	for n := start; n < end; n++ {
		f, err := s.SetFrame(ctx, n)
		if err != nil {
			return Frames{}, err
		}
		rot := make(map[string][4]float64, len(joints))
		loc := make(map[string][3]float64, len(joints))
		eul := make(map[string][3]float64, len(joints))
		for _, j := range joints {
			p, err := s.Joint(ctx, f, skeleton, j)
			if err != nil {
				return Frames{}, fmt.Errorf("%s frame %d: %w", skeleton, n, err)
			}
			q := p.Matrix.Rotation()
			t := p.Matrix.Position()
			e := geom.ToEulerXYZ(q)
			rot[j] = [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real}
			loc[j] = [3]float64{t.X, t.Y, t.Z}
			eul[j] = [3]float64{e.X, e.Y, e.Z}
		}
		out.Rotation = append(out.Rotation, rot)
		out.Translation = append(out.Translation, loc)
		out.RotationEuler = append(out.RotationEuler, eul)
	}
	return out, nil
}

// Run samples every pair. Source and target always cover the same number of
// frames.
func Run(ctx context.Context, s host.Scene, pairs []Pair, opts Options) (Data, error) {
	data := make(Data, len(pairs))
	for _, p := range pairs {
		log := logrus.WithFields(logrus.Fields{"gloss": p.Gloss, "start": p.Start, "end": p.End})
		target, err := Sample(ctx, s, p.Target, p.Gloss, p.Start, p.End+1, opts)
		if err != nil {
			return nil, fmt.Errorf("extract %s target: %w", p.Gloss, err)
		}
		source, err := Sample(ctx, s, p.Source, p.Gloss, 1, p.End-p.Start+2, opts)
		if err != nil {
			return nil, fmt.Errorf("extract %s source: %w", p.Gloss, err)
		}
		if source.Len() != target.Len() {
			return nil, fmt.Errorf("extract %s: %d source frames, %d target: %w", p.Gloss, source.Len(), target.Len(), ErrLengthMismatch)
		}
		data[p.Gloss] = Entry{NumFrame: target.Len(), Source: source, Target: target}
		log.WithField("frames", target.Len()).Debug("gloss extracted")
	}
	return data, nil
}
