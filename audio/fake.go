package audio

import (
	"time"
)

const fakeChunkFrames = 1024

// FakeContext plays canned PCM through the capture interface, then
// feeds silence until stopped so the silence detector can end the
// cycle naturally. Selected via VOX_FAKE_MIC for tests and demos.
type FakeContext struct {
	pcm        []int16
	sampleRate int
	realtime   bool
}

// NewFakeContext wraps raw mono samples. With realtime set, playback is
// paced at the sample rate; otherwise content is delivered as fast as
// the callback accepts it.
func NewFakeContext(samples []int16, sampleRate int, realtime bool) *FakeContext {
	return &FakeContext{pcm: samples, sampleRate: sampleRate, realtime: realtime}
}

// NewFakeContextFromWAV loads playback content from a WAV file.
func NewFakeContextFromWAV(path string, realtime bool) (*FakeContext, error) {
	samples, rate, err := ReadWAV(path)
	if err != nil {
		return nil, err
	}
	return &FakeContext{pcm: samples, sampleRate: rate, realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "Fake Microphone"}}, nil
}

func (f *FakeContext) Close() {}

// NewCapture returns a device that replays the content from the start.
// The requested sample rate is ignored; the canned rate wins.
func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig, cb DataCallback) (CaptureDevice, error) {
	return &fakeCapture{
		pcm:        f.pcm,
		sampleRate: f.sampleRate,
		realtime:   f.realtime,
		cb:         cb,
	}, nil
}

type fakeCapture struct {
	pcm        []int16
	sampleRate int
	realtime   bool
	cb         DataCallback

	stop chan struct{}
	done chan struct{}
}

func (f *fakeCapture) Start() error {
	f.stop = make(chan struct{})
	f.done = make(chan struct{})

	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeChunkFrames) * time.Second / time.Duration(f.sampleRate)
	}

	go func() {
		defer close(f.done)
		silence := make([]byte, fakeChunkFrames*2)
		pos := 0
		for {
			select {
			case <-f.stop:
				return
			default:
			}

			if pos < len(f.pcm) {
				end := min(pos+fakeChunkFrames, len(f.pcm))
				f.cb(encodeSamples(f.pcm[pos:end]), uint32(end-pos))
				pos = end
				if !f.realtime {
					continue
				}
			} else {
				f.cb(silence, fakeChunkFrames)
			}

			select {
			case <-f.stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *fakeCapture) Stop() {
	if f.stop == nil {
		return
	}
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	<-f.done
}

func (f *fakeCapture) Close() { f.Stop() }

func encodeSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}
