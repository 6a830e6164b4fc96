package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultSocketPath is the template used when no socket path is
// configured. $UID expands to the caller's uid.
const DefaultSocketPath = "/run/user/$UID/vox.sock"

// ExpandSocketPath substitutes $UID and $RUNTIME_DIRECTORY in a socket
// path. When the expanded path's directory does not exist (no systemd
// user runtime on this host), the socket falls back to the temp dir.
func ExpandSocketPath(path string) (string, error) {
	if strings.Contains(path, "$RUNTIME_DIRECTORY") {
		dir := os.Getenv("RUNTIME_DIRECTORY")
		if dir == "" {
			return "", fmt.Errorf("socket path %q: RUNTIME_DIRECTORY not set", path)
		}
		path = strings.ReplaceAll(path, "$RUNTIME_DIRECTORY", dir)
	}
	if strings.Contains(path, "$UID") {
		path = strings.ReplaceAll(path, "$UID", uidString())
	}

	if dir := filepath.Dir(path); !dirExists(dir) {
		return filepath.Join(os.TempDir(), "vox-"+uidString()+".sock"), nil
	}
	return path, nil
}

func uidString() string {
	// Systemd sets UID for user services; fall back to the real uid.
	if env := os.Getenv("UID"); env != "" {
		if _, err := strconv.Atoi(env); err == nil {
			return env
		}
	}
	return strconv.Itoa(os.Getuid())
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// DataDir is the root for models and recordings.
func DataDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "vox"), nil
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(localAppData, "vox"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vox"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "vox"), nil
}

func ModelsDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "models"), nil
}

func RecordingsDir() (string, error) {
	data, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "recordings"), nil
}

// DefaultFilePath is the conventional config file location.
func DefaultFilePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "vox"), nil
}
