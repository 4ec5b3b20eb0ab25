package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Target variant identifiers used in the controller configuration.
const (
	VariantLocalRotation  = "LocalRotationTarget"
	VariantTrajectory     = "TrajectoryTarget"
	VariantRelativeLocRot = "RelativeLocRotTarget"
	VariantHeadRot        = "HeadRotTarget"
)

// Inflection types select which table columns feed a target.
const (
	TypeHand     = "hand"
	TypeTorso    = "torso"
	TypeShoulder = "shoulder"
	TypeHead     = "head"
)

type Constraints struct {
	UseTail     bool `mapstructure:"use_tail" json:"use_tail"`
	ChainCount  int  `mapstructure:"chain_count" json:"chain_count"`
	UseRotation bool `mapstructure:"use_rotation" json:"use_rotation"`
}

// Target configures one inflection target: the variant to build, the joint it
// moves, the joint deltas are expressed against and the IK link settings.
type Target struct {
	Target      string      `mapstructure:"target" json:"target"`
	Bone        string      `mapstructure:"bone" json:"bone"`
	Root        string      `mapstructure:"root" json:"root"`
	Dominance   string      `mapstructure:"dominance" json:"dominance"`
	IType       string      `mapstructure:"itype" json:"itype"`
	Constraints Constraints `mapstructure:"constraints" json:"constraints"`
}

func (t Target) Validate() error {
	switch t.Target {
	case VariantLocalRotation, VariantTrajectory, VariantRelativeLocRot, VariantHeadRot:
	default:
		return fmt.Errorf("target %q: %w", t.Target, ErrInvalidTarget)
	}
	if t.Bone == "" || t.Root == "" {
		return fmt.Errorf("%s: bone and root are required: %w", t.Target, ErrInvalidTarget)
	}
	if t.Dominance != "dom" && t.Dominance != "ndom" {
		return fmt.Errorf("%s %s: dominance %q: %w", t.Target, t.Bone, t.Dominance, ErrInvalidTarget)
	}
	switch t.IType {
	case TypeHand, TypeTorso, TypeShoulder, TypeHead:
	default:
		return fmt.Errorf("%s %s: itype %q: %w", t.Target, t.Bone, t.IType, ErrInvalidTarget)
	}
	if t.Constraints.ChainCount < 0 {
		return fmt.Errorf("%s %s: chain_count %d: %w", t.Target, t.Bone, t.Constraints.ChainCount, ErrInvalidTarget)
	}
	return nil
}

type Sides struct {
	Dom  Target `mapstructure:"dom"`
	NDom Target `mapstructure:"ndom"`
}

type Hand struct {
	Loc Target `mapstructure:"loc"`
	Rot Target `mapstructure:"rot"`
}

// Inflection is the controller configuration tree.
type Inflection struct {
	Torso     Target `mapstructure:"torso"`
	Head      Target `mapstructure:"head"`
	Shoulders Sides  `mapstructure:"shoulders"`
	Hands     struct {
		Dom  Hand `mapstructure:"dom"`
		NDom Hand `mapstructure:"ndom"`
	} `mapstructure:"hands"`
}

func (in *Inflection) all() map[string]Target {
	return map[string]Target{
		"torso":          in.Torso,
		"head":           in.Head,
		"shoulders.dom":  in.Shoulders.Dom,
		"shoulders.ndom": in.Shoulders.NDom,
		"hands.dom.loc":  in.Hands.Dom.Loc,
		"hands.dom.rot":  in.Hands.Dom.Rot,
		"hands.ndom.loc": in.Hands.NDom.Loc,
		"hands.ndom.rot": in.Hands.NDom.Rot,
	}
}

func (in *Inflection) Validate() error {
	for path, t := range in.all() {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// LoadInflection reads and validates the controller configuration.
func LoadInflection(path string) (*Inflection, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("controller config %s: %w", path, err)
	}
	var in Inflection
	if err := v.Unmarshal(&in); err != nil {
		return nil, fmt.Errorf("controller config %s decode: %w", path, err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("controller config %s: %w", path, err)
	}
	return &in, nil
}

// LoadIgnoreList reads the "ignore_list" array of joint names.
func LoadIgnoreList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("ignore list %s: %w", path, err)
	}
	return v.GetStringSlice("ignore_list"), nil
}
