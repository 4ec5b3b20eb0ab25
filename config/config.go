package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Service struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

type Scene struct {
	CanonicalSkeleton string `yaml:"canonical_skeleton"`
	FinalAction       string `yaml:"final_action"`
	AssetExt          string `yaml:"asset_ext"`
	// Character is an optional asset providing the canonical skeleton.
	Character string `yaml:"character"`
}

type Timing struct {
	UseRelativeTime         bool    `yaml:"use_relative_time"`
	IgnoreGlossDuration     bool    `yaml:"ignore_gloss_duration"`
	WithoutInflection       bool    `yaml:"without_inflection"`
	CompoundTransitionRatio float64 `yaml:"compound_transition_ratio"`
	// Require lists inflection categories that must be present in the table.
	Require []string `yaml:"require"`
}

// Extract configures sampling of inflected glosses for evaluation. A run that
// extracts stops before merging.
type Extract struct {
	Enabled        bool     `yaml:"enabled"`
	WithoutFingers bool     `yaml:"without_fingers"`
	Joints         []string `yaml:"joints"`
	// Path defaults to evaluation_data.json in the session directory.
	Path string `yaml:"path"`
	// Reference is a recorded sentence asset. Without one every gloss is
	// compared with its own resampled source.
	Reference string `yaml:"reference"`
	// TrimStart is the number of frames cut from the head of the reference
	// recording.
	TrimStart int `yaml:"trim_start"`
}

type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Paths struct {
		Corpus           string `yaml:"corpus"`
		ControllerConfig string `yaml:"controller_config"`
		IgnoreList       string `yaml:"ignore_list"`
		Outputs          string `yaml:"outputs"`
	} `yaml:"paths"`
	Scene   Scene   `yaml:"scene"`
	Timing  Timing  `yaml:"timing"`
	Extract Extract `yaml:"extract"`
	Host    Service `yaml:"host"`
}

func Default() *Root {
	var cfg Root
	cfg.applyDefaults()
	return &cfg
}

func (c *Root) applyDefaults() {
	if c.Pipeline.Name == "" {
		c.Pipeline.Name = "mmsplayer"
	}
	if c.Pipeline.LogLvl == "" {
		c.Pipeline.LogLvl = "info"
	}
	if c.Paths.ControllerConfig == "" {
		c.Paths.ControllerConfig = filepath.Join("assets", "controller_config.json")
	}
	if c.Paths.IgnoreList == "" {
		c.Paths.IgnoreList = filepath.Join("assets", "ignorelist.json")
	}
	if c.Scene.CanonicalSkeleton == "" {
		c.Scene.CanonicalSkeleton = "skeleton #5"
	}
	if c.Scene.FinalAction == "" {
		c.Scene.FinalAction = "final_action"
	}
	if c.Scene.AssetExt == "" {
		c.Scene.AssetExt = ".json"
	}
	if c.Host.TimeoutSec == 0 {
		c.Host.TimeoutSec = 60
	}
}

// Load looks for config/<CONFIG_ENV>/config.yaml, then config.yaml. When
// neither exists the defaults are returned.
func Load() (*Root, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	var guess []string = []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	for _, p := range guess {
		cfg, err := LoadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func LoadFile(path string) (*Root, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Root
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
