//go:build windows

package cue

// No playback backend on Windows; cues are silent.

func warmup() {}

func play([]int16) {}
