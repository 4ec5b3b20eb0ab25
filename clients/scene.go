package clients

import (
	"context"

	"github.com/mmsplayer/mmsplayer/host"
)

// --- Scene (/host/scene.*, /host/skeleton.*, /host/controller.*) ---
type SceneReq struct {
	Path       string         `json:"path,omitempty"`
	Skeleton   string         `json:"skeleton,omitempty"`
	Name       string         `json:"name,omitempty"`
	Joint      string         `json:"joint,omitempty"`
	Animation  string         `json:"animation,omitempty"`
	Controller string         `json:"controller,omitempty"`
	Frame      *FrameToken    `json:"frame,omitempty"`
	IK         *host.IKParams `json:"ik,omitempty"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
}

// FrameToken is the wire form of host.Frame.
type FrameToken struct {
	Number int    `json:"number"`
	Epoch  uint64 `json:"epoch"`
}

func token(f host.Frame) *FrameToken {
	return &FrameToken{Number: f.Number(), Epoch: f.Epoch()}
}

type NameResp struct {
	Name string `json:"name"`
}

type JointsResp struct {
	Joints []string `json:"joints"`
}

func (h *HTTP) LoadGloss(ctx context.Context, path, skeleton string) (string, error) {
	var out NameResp
	if err := h.call(ctx, "scene.load_gloss", SceneReq{Path: path, Skeleton: skeleton}, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (h *HTTP) DuplicateSkeleton(ctx context.Context, src, name string) error {
	return h.call(ctx, "skeleton.duplicate", SceneReq{Skeleton: src, Name: name}, nil)
}

func (h *HTTP) Joints(ctx context.Context, skeleton string) ([]string, error) {
	var out JointsResp
	if err := h.call(ctx, "skeleton.joints", SceneReq{Skeleton: skeleton}, &out); err != nil {
		return nil, err
	}
	return out.Joints, nil
}

func (h *HTTP) ActiveAnimation(ctx context.Context, skeleton string) (string, error) {
	var out NameResp
	if err := h.call(ctx, "skeleton.active_animation", SceneReq{Skeleton: skeleton}, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (h *HTTP) SetActiveAnimation(ctx context.Context, skeleton, anim string) error {
	return h.call(ctx, "skeleton.set_active_animation", SceneReq{Skeleton: skeleton, Animation: anim}, nil)
}

// SetFrame returns the frame token minted by the bridge.
func (h *HTTP) SetFrame(ctx context.Context, n int) (host.Frame, error) {
	var out FrameToken
	if err := h.call(ctx, "scene.set_frame", FrameToken{Number: n}, &out); err != nil {
		return host.Frame{}, err
	}
	return host.PinFrame(out.Number, out.Epoch), nil
}

func (h *HTTP) Joint(ctx context.Context, f host.Frame, skeleton, joint string) (host.JointPose, error) {
	var out host.JointPose
	if err := h.call(ctx, "skeleton.joint", SceneReq{Frame: token(f), Skeleton: skeleton, Joint: joint}, &out); err != nil {
		return host.JointPose{}, err
	}
	return out, nil
}

func (h *HTTP) CreateController(ctx context.Context, name, skeleton, parentJoint string) error {
	return h.call(ctx, "controller.create", SceneReq{Controller: name, Skeleton: skeleton, Joint: parentJoint}, nil)
}

func (h *HTTP) Controller(ctx context.Context, f host.Frame, name string) (host.ControllerPose, error) {
	var out host.ControllerPose
	if err := h.call(ctx, "controller.pose", SceneReq{Frame: token(f), Controller: name}, &out); err != nil {
		return host.ControllerPose{}, err
	}
	return out, nil
}

func (h *HTTP) AttachIK(ctx context.Context, skeleton, joint, controller string, p host.IKParams) error {
	return h.call(ctx, "controller.attach_ik", SceneReq{Skeleton: skeleton, Joint: joint, Controller: controller, IK: &p}, nil)
}

func (h *HTTP) Bake(ctx context.Context, skeleton string, start, end int) error {
	return h.call(ctx, "skeleton.bake", SceneReq{Skeleton: skeleton, Start: start, End: end}, nil)
}
