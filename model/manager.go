package model

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"vox/log"
)

const sizeCacheTTL = 24 * time.Hour

// Manager owns the models directory. Safe for concurrent use.
type Manager struct {
	dir    string
	client *http.Client

	mu    sync.Mutex
	sizes map[string]sizeEntry

	now func() time.Time
}

type sizeEntry struct {
	size    int64
	fetched time.Time
}

// Info is a catalog entry resolved against the local store.
type Info struct {
	Definition
	Path       string
	Downloaded bool
}

// NewManager creates the models directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Manager{
		dir:    dir,
		client: &http.Client{},
		sizes:  make(map[string]sizeEntry),
		now:    time.Now,
	}, nil
}

func (m *Manager) Dir() string { return m.dir }

// path is where a definition lives on disk, downloaded or not.
func (m *Manager) path(def Definition) string {
	if def.Dir {
		return filepath.Join(m.dir, def.Name)
	}
	return filepath.Join(m.dir, def.Name+".bin")
}

// Resolve looks a model up by name and reports its local state.
func (m *Manager) Resolve(name string) (Info, error) {
	def, ok := Lookup(name)
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	p := m.path(def)
	_, err := os.Stat(p)
	return Info{Definition: def, Path: p, Downloaded: err == nil}, nil
}

// DownloadedPath returns the artifact path, failing when the model is
// not present locally.
func (m *Manager) DownloadedPath(name string) (string, error) {
	info, err := m.Resolve(name)
	if err != nil {
		return "", err
	}
	if !info.Downloaded {
		return "", fmt.Errorf("%w: %q", ErrNotDownloaded, name)
	}
	return info.Path, nil
}

// List resolves the whole catalog in catalog order.
func (m *Manager) List() []Info {
	infos := make([]Info, 0, len(Catalog))
	for _, def := range Catalog {
		p := m.path(def)
		_, err := os.Stat(p)
		infos = append(infos, Info{Definition: def, Path: p, Downloaded: err == nil})
	}
	return infos
}

// Remove deletes a downloaded model from disk.
func (m *Manager) Remove(name string) error {
	info, err := m.Resolve(name)
	if err != nil {
		return err
	}
	if !info.Downloaded {
		return fmt.Errorf("%w: %q", ErrNotDownloaded, name)
	}
	if info.Dir {
		return os.RemoveAll(info.Path)
	}
	return os.Remove(info.Path)
}

// Sizes returns the download size per model name, from HEAD requests
// cached for 24 hours. Models whose size cannot be determined are
// omitted.
func (m *Manager) Sizes(ctx context.Context) map[string]int64 {
	now := m.now()
	sizes := make(map[string]int64, len(Catalog))
	var misses []Definition

	for _, def := range Catalog {
		if size, ok := m.cachedSize(def.Name, now); ok {
			sizes[def.Name] = size
			continue
		}
		misses = append(misses, def)
	}

	if len(misses) == 0 {
		return sizes
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, def := range misses {
		wg.Add(1)
		go func(def Definition) {
			defer wg.Done()
			size, err := m.remoteSize(ctx, def.URL)
			if err != nil {
				log.Warnf("model size for %s: %v", def.Name, err)
				return
			}
			mu.Lock()
			sizes[def.Name] = size
			mu.Unlock()
			m.mu.Lock()
			m.sizes[def.Name] = sizeEntry{size: size, fetched: now}
			m.mu.Unlock()
		}(def)
	}
	wg.Wait()
	return sizes
}

func (m *Manager) cachedSize(name string, now time.Time) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sizes[name]
	if !ok || now.Sub(e.fetched) >= sizeCacheTTL {
		return 0, false
	}
	return e.size, true
}

// remoteSize issues a HEAD request. Hugging Face serves redirects whose
// content-length is not the artifact size, but carries the real size in
// x-linked-size, so that header is the fallback.
func (m *Manager) remoteSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("head %s: %s", url, resp.Status)
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength, nil
	}
	if v := resp.Header.Get("x-linked-size"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil && size > 0 {
			return size, nil
		}
	}
	return 0, fmt.Errorf("head %s: no size header", url)
}

// StorageInfo summarizes local disk usage of the store. FreeBytes is
// best effort and stays 0 when the filesystem cannot be queried.
type StorageInfo struct {
	Dir             string
	TotalBytes      int64
	FreeBytes       int64
	DownloadedCount int
	CatalogCount    int
}

func (m *Manager) StorageInfo() (StorageInfo, error) {
	info := StorageInfo{Dir: m.dir, CatalogCount: len(Catalog)}
	for _, mi := range m.List() {
		if !mi.Downloaded {
			continue
		}
		size, err := pathSize(mi.Path)
		if err != nil {
			return StorageInfo{}, err
		}
		info.TotalBytes += size
		info.DownloadedCount++
	}
	if free, err := availableSpace(m.dir); err == nil {
		info.FreeBytes = free
	}
	return info, nil
}

func pathSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
