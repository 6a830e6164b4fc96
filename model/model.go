// Package model maintains the local speech model store: a fixed catalog
// of known models, their on-disk layout under the data directory, and
// download/removal of model artifacts.
package model

import "errors"

var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrNotDownloaded    = errors.New("model is not downloaded")
	ErrInsufficientDisk = errors.New("insufficient disk space")
)

// Engine is the inference family a model belongs to. It decides which
// transcription backend loads the artifact.
type Engine string

const (
	EngineWhisper  Engine = "Whisper"
	EngineParakeet Engine = "Parakeet"
)

// Definition is a catalog entry. Dir models ship as tar.gz archives and
// unpack to a directory named after the model; file models are stored
// as <name>.bin.
type Definition struct {
	Name   string
	Engine Engine
	URL    string
	SHA256 string // empty when upstream publishes no checksum
	Dir    bool
}

// Catalog lists every model the service knows how to fetch, smallest
// first within each family.
var Catalog = []Definition{
	{
		Name:   "whisper-tiny",
		Engine: EngineWhisper,
		URL:    "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	},
	{
		Name:   "whisper-base",
		Engine: EngineWhisper,
		URL:    "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	},
	{
		Name:   "whisper-small",
		Engine: EngineWhisper,
		URL:    "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
	},
	{
		Name:   "whisper-medium",
		Engine: EngineWhisper,
		URL:    "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
	},
	{
		Name:   "parakeet-v2",
		Engine: EngineParakeet,
		URL:    "https://blob.handy.computer/parakeet-v2-int8.tar.gz",
		Dir:    true,
	},
	{
		Name:   "parakeet-v3",
		Engine: EngineParakeet,
		URL:    "https://blob.handy.computer/parakeet-v3-int8.tar.gz",
		Dir:    true,
	},
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Definition, bool) {
	for _, def := range Catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
