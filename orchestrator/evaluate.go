package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/extract"
	"github.com/mmsplayer/mmsplayer/glue"
)

const referenceSkeleton = "reference_sentence"

// evaluate samples every inflected gloss next to its reference and writes
// evaluation_data.json. With a reference recording the target is the gloss
// window of that recording, shifted by the trim offset. Otherwise, and always
// in relative mode, the target is the resampled source gloss. HOLDs own no
// skeleton and are skipped.
func (p *Pipeline) evaluate(ctx context.Context, processed []Processed, res *Result) error {
	x := p.cfg.Extract
	withRef := x.Reference != "" && !p.cfg.Timing.UseRelativeTime
	if withRef {
		if _, err := p.host.LoadGloss(ctx, x.Reference, referenceSkeleton); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
	}

	pairs := make([]extract.Pair, 0, len(processed))
	for _, pr := range processed {
		if pr.Gloss.Hold {
			continue
		}
		pair := extract.Pair{Gloss: pr.Gloss.OutputName(), Source: pr.Skeleton}
		if withRef {
			s, e := pr.Gloss.Frames()
			s -= x.TrimStart
			if s == 0 {
				s = 1
			}
			pair.Target, pair.Start, pair.End = referenceSkeleton, s, e-x.TrimStart
		} else {
			r := pr.Gloss.Resampled
			pair.Target, pair.Start, pair.End = pr.Gloss.OutputName(), int(r.Start), int(r.End)
		}
		pairs = append(pairs, pair)
	}

	data, err := extract.Run(ctx, p.host, pairs, extract.Options{Joints: x.Joints, WithoutFingers: x.WithoutFingers})
	if err != nil {
		return err
	}

	path := x.Path
	if path == "" {
		root := p.cfg.Paths.Outputs
		if root == "" {
			root = "."
		}
		sid, dir, err := mkSessionDir(root)
		if err != nil {
			return fmt.Errorf("persist evaluation data: %w", err)
		}
		res.SessionID = sid
		path = filepath.Join(dir, "evaluation_data.json")
	}
	if err := writeJSON(path, data); err != nil {
		return fmt.Errorf("persist evaluation data: %w", err)
	}
	res.EvaluationPath = path
	p.log.WithFields(logrus.Fields{"path": path, "glosses": len(data), "reference": withRef}).Info("evaluation data written")
	return nil
}

// RenderReference plays a recorded sentence on the canonical skeleton from
// frame 1, without parsing a table or inflecting anything.
func (p *Pipeline) RenderReference(ctx context.Context, path string) (*Result, error) {
	anim, err := p.host.LoadGloss(ctx, path, referenceSkeleton)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if err := p.canonical(ctx, referenceSkeleton); err != nil {
		return nil, err
	}
	g, err := glue.New(ctx, p.host, p.cfg.Scene.CanonicalSkeleton, p.cfg.Scene.FinalAction)
	if err != nil {
		return nil, err
	}
	if err := g.PrepareChannels(ctx, anim); err != nil {
		return nil, err
	}
	r, err := p.host.FrameRange(ctx, anim)
	if err != nil {
		return nil, err
	}
	written, err := g.Combine(ctx, anim, 1)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p.log.WithFields(logrus.Fields{"reference": name, "action": g.Action(), "end": written}).Info("reference rendered")
	return &Result{
		Action:     g.Action(),
		Placements: []glue.Placement{{Gloss: name, Source: anim, Start: 1, End: r.End, Written: written}},
	}, nil
}
