package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mmsplayer/mmsplayer/mms"
)

func mkSessionDir(outputsRoot string) (string, string, error) {
	ts := time.Now().Format("20060102-150405")
	sid := "session_" + ts
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func glossReports(gs []mms.ResolvedGloss, targets [][]string) []GlossReport {
	out := make([]GlossReport, 0, len(gs))
	for i, g := range gs {
		r := GlossReport{
			Index:     g.Key.Index,
			Name:      g.Key.Name,
			Category:  string(g.Category),
			Hold:      g.Hold,
			Asset:     g.AssetPath,
			Original:  g.Original,
			Resampled: g.Resampled,
			Targets:   targets[i],
		}
		if g.HoldOf != nil {
			r.HoldOf = g.HoldOf.String()
		}
		out = append(out, r)
	}
	return out
}

// persist writes the report under a fresh session directory and returns the
// session id and file path.
func persist(outputsRoot string, rep Report) (sessionID, reportPath string, err error) {
	sid, outDir, err := mkSessionDir(outputsRoot)
	if err != nil {
		return "", "", err
	}
	rep.SessionID = sid
	rep.GeneratedAt = time.Now()

	p := filepath.Join(outDir, "timeline.json")
	if err = writeJSON(p, rep); err != nil {
		return "", "", err
	}
	return sid, p, nil
}
