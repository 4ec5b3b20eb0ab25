package mms

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver locates gloss assets under a corpus root as
// <root>/<category>/trimmed/<name><ext>.
type Resolver struct {
	Root string
	Ext  string
}

func (r Resolver) Path(category Category, name string) string {
	return filepath.Join(r.Root, string(category), "trimmed", name+r.Ext)
}

// Exists reports whether the asset file is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolve attaches asset paths in table order. A HOLD takes the path and
// category of the closest non-HOLD entry before it. Every non-HOLD asset
// must exist.
func (r Resolver) Resolve(t *Table) ([]ResolvedGloss, error) {
	out := make([]ResolvedGloss, 0, len(t.Glosses))
	var prev *ResolvedGloss
	for _, g := range t.Glosses {
		rg := ResolvedGloss{ParsedGloss: g}
		if g.Hold {
			if prev == nil {
				return nil, fmt.Errorf("gloss %v: %w", g.Key, ErrHoldWithoutPredecessor)
			}
			src := prev.Key
			if prev.HoldOf != nil {
				src = *prev.HoldOf
			}
			rg.AssetPath = prev.AssetPath
			rg.Category = prev.Category
			rg.HoldOf = &src
		} else {
			rg.AssetPath = r.Path(g.Category, g.Key.Name)
			if !Exists(rg.AssetPath) {
				return nil, fmt.Errorf("%q for gloss %v: %w", rg.AssetPath, g.Key, ErrAssetNotFound)
			}
		}
		out = append(out, rg)
		prev = &out[len(out)-1]
	}
	return out, nil
}
