// Package host describes what the engine needs from an animation host: curve
// storage and evaluation, skeleton and controller objects, pose reads pinned to
// a frame, IK links and baking. The solver itself lives behind this contract.
package host

import (
	"context"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmsplayer/mmsplayer/geom"
)

// Property is the animated attribute a channel drives.
type Property string

const (
	PropLocation           Property = "location"
	PropRotationEuler      Property = "rotation_euler"
	PropRotationQuaternion Property = "rotation_quaternion"
)

// Width is the number of components of the property.
func (p Property) Width() int {
	if p == PropRotationQuaternion {
		return 4
	}
	return 3
}

// Default is the rest value of one component.
func (p Property) Default(index int) float64 {
	if p == PropRotationQuaternion && index == 0 {
		return 1
	}
	return 0
}

// ChannelKey addresses one curve of an animation. Owner is the joint name for
// skeleton animations and empty for controller animations.
type ChannelKey struct {
	Owner    string   `json:"owner,omitempty"`
	Property Property `json:"property"`
	Index    int      `json:"index"`
}

// Keyframe is one curve sample.
type Keyframe struct {
	Frame float64 `json:"frame"`
	Value float64 `json:"value"`
}

// FrameRange is the inclusive span of keyframes of an animation.
type FrameRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// JointPose is the evaluated state of a joint at a pinned frame. Matrix, Head
// and Tail are in skeleton space; Location and Rotation (Euler Z-X-Y) are the
// joint's own local channel values.
type JointPose struct {
	Matrix   geom.Mat4 `json:"matrix"`
	Head     r3.Vec    `json:"head"`
	Tail     r3.Vec    `json:"tail"`
	Location r3.Vec    `json:"location"`
	Rotation r3.Vec    `json:"rotation"`
}

// ControllerPose is the local transform of a controller object relative to
// the joint it is parented to.
type ControllerPose struct {
	Location r3.Vec      `json:"location"`
	Rotation quat.Number `json:"rotation"`
}

// IKParams configure the link between a joint and its controller.
type IKParams struct {
	ChainLength int  `json:"chain_length"`
	UseRotation bool `json:"use_rotation"`
	UseTail     bool `json:"use_tail"`
}

// Curves is the animation data side of the host.
type Curves interface {
	NewAnimation(ctx context.Context, name string) error
	RenameAnimation(ctx context.Context, from, to string) error
	EnsureChannel(ctx context.Context, anim string, key ChannelKey) error
	Channels(ctx context.Context, anim string) ([]ChannelKey, error)
	Keyframes(ctx context.Context, anim string, key ChannelKey) ([]Keyframe, error)
	// InsertKeyframe creates the channel if needed and replaces any sample
	// already at the same frame.
	InsertKeyframe(ctx context.Context, anim string, key ChannelKey, kf Keyframe) error
	// Evaluate samples a channel at a continuous frame position.
	Evaluate(ctx context.Context, anim string, key ChannelKey, pos float64) (float64, error)
	FrameRange(ctx context.Context, anim string) (FrameRange, error)
}

// Scene is the object side of the host.
type Scene interface {
	// LoadGloss imports a gloss asset as a skeleton with the given name and
	// returns the name of the animation it came with, now active on it.
	LoadGloss(ctx context.Context, path, skeleton string) (string, error)
	// DuplicateSkeleton copies the joints of src into a new skeleton carrying a
	// fresh empty animation of the same name.
	DuplicateSkeleton(ctx context.Context, src, name string) error
	Joints(ctx context.Context, skeleton string) ([]string, error)
	ActiveAnimation(ctx context.Context, skeleton string) (string, error)
	SetActiveAnimation(ctx context.Context, skeleton, anim string) error

	// SetFrame moves the scene to frame n. The returned token is the only way
	// to read poses, and it goes stale as soon as the frame moves again.
	SetFrame(ctx context.Context, n int) (Frame, error)
	Joint(ctx context.Context, f Frame, skeleton, joint string) (JointPose, error)

	// CreateController adds a controller object parented to a joint. Its
	// animation is named after the controller.
	CreateController(ctx context.Context, name, skeleton, parentJoint string) error
	Controller(ctx context.Context, f Frame, name string) (ControllerPose, error)

	AttachIK(ctx context.Context, skeleton, joint, controller string, p IKParams) error
	// Bake keys the visual pose of every joint, constraints included, into the
	// active animation for frames start..end. Constraints are kept.
	Bake(ctx context.Context, skeleton string, start, end int) error
}

// Host is the full capability set.
type Host interface {
	Curves
	Scene
}
