package encoder

import (
	"bytes"
	"sync"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// granuleSize is the samples-per-frame quantum the bitstream needs:
// 1152 for MPEG-1 rates, 576 for the MPEG-2 rates speech capture uses.
func granuleSize(sampleRate int) int {
	if sampleRate >= 32000 {
		return 1152
	}
	return 576
}

type Mp3Encoder struct {
	buf         bytes.Buffer
	pending     []int16 // samples waiting for the next full frame
	enc         *mp3.Encoder
	granule     int
	totalFrames uint64
	mu          sync.Mutex
}

func NewMp3(sampleRate int) (*Mp3Encoder, error) {
	return &Mp3Encoder{
		enc:     mp3.NewEncoder(sampleRate, Channels),
		granule: granuleSize(sampleRate),
	}, nil
}

func (e *Mp3Encoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.totalFrames += uint64(len(block))
	e.pending = append(e.pending, block...)

	// Encode complete frames only
	complete := (len(e.pending) / e.granule) * e.granule
	if complete > 0 {
		e.enc.Write(&e.buf, e.pending[:complete])
		e.pending = e.pending[complete:]
	}
	return nil
}

func (e *Mp3Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) > 0 {
		// Pad to a full frame
		for len(e.pending) < e.granule {
			e.pending = append(e.pending, 0)
		}
		e.enc.Write(&e.buf, e.pending)
		e.pending = nil
	}
	return nil
}

func (e *Mp3Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Mp3Encoder) TotalFrames() uint64 {
	return e.totalFrames
}
