package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"vox/log"
)

// Progress receives download progress. total is 0 when the server does
// not announce a length.
type Progress func(done, total int64)

// Download fetches a model artifact into the store. Already-downloaded
// models are a no-op. The artifact lands under its final name only
// after it is fully written, so a crashed download never leaves a
// half-usable model.
func (m *Manager) Download(ctx context.Context, name string, progress Progress) error {
	info, err := m.Resolve(name)
	if err != nil {
		return err
	}
	if info.Downloaded {
		return nil
	}
	return m.fetch(ctx, info, progress)
}

func (m *Manager) fetch(ctx context.Context, info Info, progress Progress) error {
	name := info.Name
	if info.URL == "" {
		return fmt.Errorf("model %q has no download url", name)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", name, resp.Status)
	}

	if resp.ContentLength > 0 {
		if err := m.checkDiskSpace(resp.ContentLength); err != nil {
			return err
		}
	}

	// Temp file in the models dir keeps the final rename on one
	// filesystem.
	tmp, err := os.CreateTemp(m.dir, ".vox-download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	src := io.Reader(resp.Body)
	if progress != nil {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress}
	}
	written, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	if info.SHA256 != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if got != info.SHA256 {
			return fmt.Errorf("checksum mismatch for %s: got %s, want %s", name, got[:12], info.SHA256[:12])
		}
	}

	if info.Dir {
		if err := m.extractArchive(tmpPath, info.Definition); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	} else {
		if err := os.Chmod(tmpPath, 0o644); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
		if err := os.Rename(tmpPath, info.Path); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}

	log.ModelDownload(name, written, float64(time.Since(start).Milliseconds()))
	return nil
}

// checkDiskSpace requires headroom of 10% over the announced size.
func (m *Manager) checkDiskSpace(total int64) error {
	avail, err := availableSpace(m.dir)
	if err != nil {
		// Treat an unreadable filesystem as unknown, not full.
		return nil
	}
	need := int64(float64(total) * 1.1)
	if avail < need {
		return fmt.Errorf("%w: need %d MB, available %d MB",
			ErrInsufficientDisk, need/1_000_000, avail/1_000_000)
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	p.fn(p.read, p.total)
	return n, err
}
