package update

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Apply downloads the release asset next to the current executable,
// verifies it against the published checksum, and swaps it into place.
func Apply(rel *Release) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	// Stage in the same directory so the final rename stays on one
	// filesystem.
	tmpPath, digest, err := download(rel.AssetURL, filepath.Dir(execPath))
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	if rel.ChecksumURL != "" {
		want, err := checksumFor(rel.ChecksumURL, assetName())
		if err != nil {
			return fmt.Errorf("fetch checksums: %w", err)
		}
		if digest != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", digest[:12], want[:12])
		}
	}

	if err := os.Chmod(tmpPath, 0o755); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return swap(tmpPath, execPath)
}

func download(url, dir string) (path, digest string, err error) {
	tmp, err := os.CreateTemp(dir, ".vox-update-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	resp, err := http.Get(url)
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("download binary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("download binary: %s", resp.Status)
	}

	hasher := sha256.New()
	src := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength}
	}
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), src); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("write binary: %w", err)
	}
	if resp.ContentLength > 0 {
		fmt.Fprintln(os.Stderr) // end the progress line
	}
	return tmp.Name(), hex.EncodeToString(hasher.Sum(nil)), nil
}

// swap replaces current with next, keeping a rollback until the rename
// lands.
func swap(next, current string) error {
	backup := current + ".old"
	if err := os.Rename(current, backup); err != nil {
		return fmt.Errorf("backup current binary: %w", err)
	}
	if err := os.Rename(next, current); err != nil {
		os.Rename(backup, current)
		return fmt.Errorf("install new binary: %w", err)
	}
	os.Remove(backup)
	return nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := float64(p.read) / float64(p.total) * 100
	fmt.Fprintf(os.Stderr, "\r  %.0f%% (%d / %d KB)", pct, p.read/1024, p.total/1024)
	return n, err
}

func checksumFor(checksumURL, filename string) (string, error) {
	resp, err := http.Get(checksumURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksums: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		// "<hash>  <filename>", one file per line
		parts := strings.Fields(scanner.Text())
		if len(parts) == 2 && parts[1] == filename {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("no checksum for %s", filename)
}
