//go:build windows

package autostart

import "errors"

var errUnsupported = errors.New("autostart is not supported on Windows")

func enable() error  { return errUnsupported }
func disable() error { return errUnsupported }
func enabled() bool  { return false }
