package host

import "fmt"

// Frame pins pose reads to one scene frame. Hosts mint it from SetFrame and
// reject it with ErrStaleFrame once another SetFrame has happened.
type Frame struct {
	number int
	epoch  uint64
}

// PinFrame is for host implementations only.
func PinFrame(number int, epoch uint64) Frame {
	return Frame{number: number, epoch: epoch}
}

func (f Frame) Number() int { return f.number }

func (f Frame) Epoch() uint64 { return f.epoch }

func (f Frame) String() string { return fmt.Sprintf("frame %d (epoch %d)", f.number, f.epoch) }
