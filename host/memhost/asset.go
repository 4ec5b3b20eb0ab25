package memhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mmsplayer/mmsplayer/host"
)

// Asset is the JSON layout of a gloss file:
//
//	{"skeleton": {"joints": [{"name": "Hips", "head": {...}, "tail": {...}}]},
//	 "animation": {"name": "...", "channels": [{"joint": "Hips",
//	   "property": "rotation_euler", "index": 0, "keyframes": [[1, 0.1]]}]}}
type Asset struct {
	Skeleton struct {
		Joints []JointDef `json:"joints"`
	} `json:"skeleton"`
	Animation AssetAnimation `json:"animation"`
}

type AssetAnimation struct {
	Name     string         `json:"name"`
	Channels []AssetChannel `json:"channels"`
}

type AssetChannel struct {
	Joint     string        `json:"joint"`
	Property  host.Property `json:"property"`
	Index     int           `json:"index"`
	Keyframes [][2]float64  `json:"keyframes"`
}

func ReadAsset(path string) (*Asset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Asset
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("asset %s decode: %w", path, err)
	}
	if len(a.Skeleton.Joints) == 0 {
		return nil, fmt.Errorf("asset %s: no joints", path)
	}
	return &a, nil
}

// LoadGloss reads a JSON asset. The animation keeps its stored name unless
// it is taken, in which case a numeric suffix is added.
func (h *Host) LoadGloss(_ context.Context, path, skel string) (string, error) {
	a, err := ReadAsset(path)
	if err != nil {
		return "", err
	}
	if _, ok := h.skeletons[skel]; ok {
		return "", fmt.Errorf("skeleton %q: %w", skel, host.ErrExists)
	}
	s, err := newSkeleton(a.Skeleton.Joints)
	if err != nil {
		return "", fmt.Errorf("asset %s: %w", path, err)
	}

	name := h.freeName(a.Animation.Name, skel)
	anim := newAnimation()
	for _, ch := range a.Animation.Channels {
		if _, ok := s.index[ch.Joint]; !ok {
			return "", fmt.Errorf("asset %s channel joint %q: %w", path, ch.Joint, host.ErrNotFound)
		}
		if ch.Index < 0 || ch.Index >= ch.Property.Width() {
			return "", fmt.Errorf("asset %s channel %s[%d]: %w", path, ch.Property, ch.Index, errBadChannel)
		}
		c := anim.ensure(host.ChannelKey{Owner: ch.Joint, Property: ch.Property, Index: ch.Index})
		for _, kf := range ch.Keyframes {
			c.insert(host.Keyframe{Frame: kf[0], Value: kf[1]})
		}
	}
	h.anims[name] = anim
	s.active = name
	h.skeletons[skel] = s

	h.log.WithFields(logrus.Fields{"path": path, "skeleton": skel, "animation": name}).Debug("gloss loaded")
	return name, nil
}

var errBadChannel = errors.New("channel index out of range")

func (h *Host) freeName(base, fallback string) string {
	if base == "" {
		base = fallback
	}
	name := base
	for i := 1; ; i++ {
		if _, ok := h.anims[name]; !ok {
			return name
		}
		name = fmt.Sprintf("%s.%03d", base, i)
	}
}

// SaveAsset writes a in the layout ReadAsset expects.
func SaveAsset(path string, a *Asset) error {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
