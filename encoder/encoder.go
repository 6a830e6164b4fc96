// Package encoder turns finished recordings into compact archival
// formats. Encoders accumulate output in memory; dictation clips are
// short, so whole files fit comfortably.
package encoder

import "fmt"

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// New returns an encoder for the named archival format at the given
// capture rate.
func New(format string, sampleRate int) (Encoder, error) {
	switch format {
	case "flac":
		return NewFlac(sampleRate)
	case "mp3":
		return NewMp3(sampleRate)
	}
	return nil, fmt.Errorf("unknown archive format %q", format)
}
