// Package autostart installs the service into the platform's user
// session manager: a systemd user unit on Linux, a LaunchAgent on
// macOS.
package autostart

// Enable installs and starts the login entry for the current
// executable.
func Enable() error { return enable() }

// Disable stops and removes the login entry.
func Disable() error { return disable() }

// Enabled reports whether the login entry is installed.
func Enabled() bool { return enabled() }
