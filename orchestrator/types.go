package orchestrator

import (
	"time"

	"github.com/mmsplayer/mmsplayer/glue"
	"github.com/mmsplayer/mmsplayer/mms"
)

// Processed is one gloss after its animation has been loaded, resampled and
// inflected.
type Processed struct {
	Gloss     mms.ResolvedGloss
	Skeleton  string   // inflected skeleton
	Animation string   // inflected animation
	Targets   []string // targets that inflected it, HOLDs inherit none
}

// Result is what one run produced.
type Result struct {
	SessionID  string
	ReportPath string // empty when no outputs directory is configured
	// EvaluationPath is set when the run extracted evaluation data instead
	// of merging.
	EvaluationPath string
	Action     string
	Glosses    []mms.ResolvedGloss
	Targets    [][]string // per gloss, parallel to Glosses
	Placements []glue.Placement
}

// GlossReport is the persisted view of a resolved gloss.
type GlossReport struct {
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Hold      bool            `json:"hold,omitempty"`
	HoldOf    string          `json:"hold_of,omitempty"`
	Asset     string          `json:"asset"`
	Original  *mms.FrameRange `json:"original,omitempty"`
	Resampled *mms.FrameRange `json:"resampled,omitempty"`
	Targets   []string        `json:"targets,omitempty"`
}

// Report is written to timeline.json.
type Report struct {
	SessionID   string           `json:"session_id"`
	MMSPath     string           `json:"mms_path"`
	GeneratedAt time.Time        `json:"generated_at"`
	Mode        string           `json:"mode"`
	Action      string           `json:"action"`
	Skeleton    string           `json:"skeleton"`
	Inflectors  []string         `json:"inflectors"`
	Glosses     []GlossReport    `json:"glosses"`
	Placements  []glue.Placement `json:"placements"`
}
