package clients

import (
	"context"

	"github.com/mmsplayer/mmsplayer/host"
)

// --- Curves (/host/animation.*, /host/channel.*) ---
type AnimReq struct {
	Animation string           `json:"animation"`
	To        string           `json:"to,omitempty"`
	Channel   *host.ChannelKey `json:"channel,omitempty"`
	Keyframe  *host.Keyframe   `json:"keyframe,omitempty"`
	Position  float64          `json:"position"`
}

type ChannelsResp struct {
	Channels []host.ChannelKey `json:"channels"`
}

type KeyframesResp struct {
	Keyframes []host.Keyframe `json:"keyframes"`
}

type ValueResp struct {
	Value float64 `json:"value"`
}

func (h *HTTP) NewAnimation(ctx context.Context, name string) error {
	return h.call(ctx, "animation.new", AnimReq{Animation: name}, nil)
}

func (h *HTTP) RenameAnimation(ctx context.Context, from, to string) error {
	return h.call(ctx, "animation.rename", AnimReq{Animation: from, To: to}, nil)
}

func (h *HTTP) EnsureChannel(ctx context.Context, anim string, key host.ChannelKey) error {
	return h.call(ctx, "channel.ensure", AnimReq{Animation: anim, Channel: &key}, nil)
}

func (h *HTTP) Channels(ctx context.Context, anim string) ([]host.ChannelKey, error) {
	var out ChannelsResp
	if err := h.call(ctx, "animation.channels", AnimReq{Animation: anim}, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

func (h *HTTP) Keyframes(ctx context.Context, anim string, key host.ChannelKey) ([]host.Keyframe, error) {
	var out KeyframesResp
	if err := h.call(ctx, "channel.keyframes", AnimReq{Animation: anim, Channel: &key}, &out); err != nil {
		return nil, err
	}
	return out.Keyframes, nil
}

func (h *HTTP) InsertKeyframe(ctx context.Context, anim string, key host.ChannelKey, kf host.Keyframe) error {
	return h.call(ctx, "channel.insert", AnimReq{Animation: anim, Channel: &key, Keyframe: &kf}, nil)
}

func (h *HTTP) Evaluate(ctx context.Context, anim string, key host.ChannelKey, pos float64) (float64, error) {
	var out ValueResp
	if err := h.call(ctx, "channel.evaluate", AnimReq{Animation: anim, Channel: &key, Position: pos}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

func (h *HTTP) FrameRange(ctx context.Context, anim string) (host.FrameRange, error) {
	var out host.FrameRange
	if err := h.call(ctx, "animation.range", AnimReq{Animation: anim}, &out); err != nil {
		return host.FrameRange{}, err
	}
	return out, nil
}
