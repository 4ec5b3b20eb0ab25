package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	cfg "github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/controller"
	"github.com/mmsplayer/mmsplayer/glue"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/mms"
	"github.com/mmsplayer/mmsplayer/resample"
	"github.com/mmsplayer/mmsplayer/targets"
)

type Pipeline struct {
	cfg        *cfg.Root
	host       host.Host
	inflection *cfg.Inflection
	log        *logrus.Entry
}

// NewPipeline wires a run. When inflection is nil it is loaded from
// paths.controller_config on Run.
func NewPipeline(c *cfg.Root, h host.Host, inflection *cfg.Inflection) *Pipeline {
	return &Pipeline{
		cfg:        c,
		host:       h,
		inflection: inflection,
		log:        logrus.WithField("pipeline", c.Pipeline.Name),
	}
}

// Run realizes the timing table at mmsPath into the final action of the
// canonical skeleton.
func (p *Pipeline) Run(ctx context.Context, mmsPath string) (*Result, error) {
	table, err := mms.ParseFile(mmsPath, mms.ParseOptions{CompoundTransitionRatio: p.cfg.Timing.CompoundTransitionRatio})
	if err != nil {
		return nil, err
	}
	resolver := mms.Resolver{Root: p.cfg.Paths.Corpus, Ext: p.cfg.Scene.AssetExt}
	glosses, err := resolver.Resolve(table)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"mms": mmsPath, "glosses": len(glosses)}).Info("timing table loaded")

	tcfgs, err := p.targets(table.Availability)
	if err != nil {
		return nil, err
	}
	p.logIgnoreList()

	processed, err := p.process(ctx, glosses, tcfgs)
	if err != nil {
		return nil, err
	}

	res := &Result{Action: p.cfg.Scene.FinalAction}
	for _, pr := range processed {
		res.Glosses = append(res.Glosses, pr.Gloss)
		res.Targets = append(res.Targets, pr.Targets)
	}
	if p.cfg.Extract.Enabled {
		if err := p.evaluate(ctx, processed, res); err != nil {
			return res, err
		}
		return res, nil
	}
	if len(processed) == 0 {
		p.log.Warn("no glosses to merge")
		return res, nil
	}

	m := mode(p.cfg.Timing)
	skel := p.cfg.Scene.CanonicalSkeleton
	if err := p.canonical(ctx, processed[0].Skeleton); err != nil {
		return nil, err
	}
	g, err := glue.New(ctx, p.host, skel, p.cfg.Scene.FinalAction)
	if err != nil {
		return nil, err
	}
	if err := g.PrepareChannels(ctx, processed[0].Animation); err != nil {
		return nil, err
	}
	baked := make([]glue.Baked, 0, len(processed))
	for _, pr := range processed {
		baked = append(baked, glue.Baked{Gloss: pr.Gloss, Animation: pr.Animation})
	}
	res.Placements, err = g.Merge(ctx, baked, m)
	if err != nil {
		return res, err
	}
	p.log.WithFields(logrus.Fields{"action": g.Action(), "mode": modeName(m)}).Info("timeline merged")

	if p.cfg.Paths.Outputs != "" {
		names := make([]string, 0, len(tcfgs))
		for _, t := range tcfgs {
			names = append(names, t.Target+":"+t.Bone)
		}
		rep := Report{
			MMSPath:    mmsPath,
			Mode:       modeName(m),
			Action:     g.Action(),
			Skeleton:   skel,
			Inflectors: names,
			Glosses:    glossReports(res.Glosses, res.Targets),
			Placements: res.Placements,
		}
		res.SessionID, res.ReportPath, err = persist(p.cfg.Paths.Outputs, rep)
		if err != nil {
			return res, fmt.Errorf("persist report: %w", err)
		}
		p.log.WithField("path", res.ReportPath).Info("report written")
	}
	return res, nil
}

// targets selects the inflector configurations for the table and logs them.
func (p *Pipeline) targets(av mms.Availability) ([]cfg.Target, error) {
	if p.cfg.Timing.WithoutInflection {
		p.log.Info("inflection disabled")
		return nil, nil
	}
	if p.inflection == nil {
		in, err := cfg.LoadInflection(p.cfg.Paths.ControllerConfig)
		if err != nil {
			return nil, err
		}
		p.inflection = in
	}
	tcfgs, err := selectTargets(av, p.inflection, p.cfg.Timing.Require)
	if err != nil {
		return nil, err
	}
	for _, t := range tcfgs {
		p.log.WithFields(logrus.Fields{
			"target": t.Target, "bone": t.Bone, "root": t.Root,
			"dominance": t.Dominance, "itype": t.IType,
		}).Info("inflector")
	}
	return tcfgs, nil
}

// logIgnoreList reports the ignore list. Merging does not consult it.
func (p *Pipeline) logIgnoreList() {
	if p.cfg.Paths.IgnoreList == "" {
		return
	}
	ignore, err := cfg.LoadIgnoreList(p.cfg.Paths.IgnoreList)
	if err != nil {
		p.log.WithError(err).Warn("ignore list not loaded")
		return
	}
	p.log.WithField("joints", ignore).Debug("ignore list")
}

// process runs every gloss through load, resample and inflection. A HOLD
// reuses the processed animation and frame ranges of the gloss it holds.
func (p *Pipeline) process(ctx context.Context, glosses []mms.ResolvedGloss, tcfgs []cfg.Target) ([]Processed, error) {
	done := map[mms.Key]Processed{}
	out := make([]Processed, 0, len(glosses))
	for _, g := range glosses {
		if g.Hold {
			src, ok := done[*g.HoldOf]
			if !ok {
				return nil, fmt.Errorf("gloss %v holds %v: %w", g.Key, *g.HoldOf, mms.ErrHoldWithoutPredecessor)
			}
			if src.Gloss.Original != nil {
				g = g.WithFrameRanges(*src.Gloss.Original, *src.Gloss.Resampled)
			}
			pr := Processed{Gloss: g, Skeleton: src.Skeleton, Animation: src.Animation}
			out = append(out, pr)
			continue
		}
		pr, err := p.gloss(ctx, g, tcfgs)
		if err != nil {
			return nil, fmt.Errorf("gloss %v: %w", g.Key, err)
		}
		done[g.Key] = pr
		out = append(out, pr)
	}
	return out, nil
}

func (p *Pipeline) gloss(ctx context.Context, g mms.ResolvedGloss, tcfgs []cfg.Target) (Processed, error) {
	output := g.OutputName()
	inflected := "inflected_" + output
	log := p.log.WithField("gloss", output)

	anim, err := p.host.LoadGloss(ctx, g.AssetPath, output)
	if err != nil {
		return Processed{}, fmt.Errorf("load: %w", err)
	}
	if err := p.host.DuplicateSkeleton(ctx, output, inflected); err != nil {
		return Processed{}, fmt.Errorf("duplicate: %w", err)
	}

	orig, err := p.host.FrameRange(ctx, anim)
	if err != nil {
		return Processed{}, err
	}
	resampled := orig
	if !p.cfg.Timing.IgnoreGlossDuration {
		n := p.sampleCount(g, orig)
		log.WithField("count", n).Debug("resampling")
		r, err := resample.Resample(ctx, p.host, output, n)
		if err != nil {
			return Processed{}, err
		}
		resampled = r.Resampled
	}
	g = g.WithFrameRanges(
		mms.FrameRange{Start: orig.Start, End: orig.End},
		mms.FrameRange{Start: resampled.Start, End: resampled.End},
	)

	b := targets.Binding{Index: g.Key.Index, Skeleton: inflected, Animation: inflected, Source: output}
	c, err := controller.New(ctx, p.host, tcfgs, b)
	if err != nil {
		return Processed{}, err
	}
	var names []string
	for _, t := range c.Targets() {
		names = append(names, t.String())
	}
	r, err := c.Run(ctx, g.Inflection, p.cfg.Timing.WithoutInflection)
	if err != nil {
		return Processed{}, err
	}
	log.WithFields(logrus.Fields{"start": r.Start, "end": r.End, "targets": names}).Info("gloss processed")
	return Processed{Gloss: g, Skeleton: inflected, Animation: inflected, Targets: names}, nil
}

// sampleCount is the frame count a gloss is resampled to. In relative mode a
// missing duration keeps the full original length.
func (p *Pipeline) sampleCount(g mms.ResolvedGloss, orig host.FrameRange) int {
	if p.cfg.Timing.UseRelativeTime {
		d := mms.Duration{Value: 1, Relative: true}
		if g.Duration != nil {
			d = *g.Duration
		}
		return resample.CountForDuration(d, orig.End-orig.Start)
	}
	s, e := g.Frames()
	return resample.CountForWindow(s, e)
}

// canonical makes sure the skeleton the final action plays on exists. It is
// loaded from scene.character when set, otherwise copied from fallback.
func (p *Pipeline) canonical(ctx context.Context, fallback string) error {
	skel := p.cfg.Scene.CanonicalSkeleton
	if p.cfg.Scene.Character != "" {
		if _, err := p.host.LoadGloss(ctx, p.cfg.Scene.Character, skel); err != nil {
			return fmt.Errorf("canonical skeleton: %w", err)
		}
		return nil
	}
	_, err := p.host.Joints(ctx, skel)
	if err == nil {
		return nil
	}
	if !errors.Is(err, host.ErrNotFound) {
		return err
	}
	if err := p.host.DuplicateSkeleton(ctx, fallback, skel); err != nil {
		return fmt.Errorf("canonical skeleton: %w", err)
	}
	return nil
}
