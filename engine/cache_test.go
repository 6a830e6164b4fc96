package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vox/model"
)

func testStore(t *testing.T, downloaded ...string) *model.Manager {
	t.Helper()
	m, err := model.NewManager(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range downloaded {
		def, ok := model.Lookup(name)
		if !ok {
			t.Fatalf("unknown test model %q", name)
		}
		if def.Dir {
			if err := os.MkdirAll(filepath.Join(m.Dir(), name), 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(m.Dir(), name+".bin"), []byte("weights"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

type countingFactory struct {
	built []*Fake
	err   error
}

func (f *countingFactory) New(model.Engine) (Engine, error) {
	if f.err != nil {
		return nil, f.err
	}
	eng := NewFake("from fake", nil)
	f.built = append(f.built, eng)
	return eng, nil
}

func TestCacheLazyLoadIsIdempotent(t *testing.T) {
	factory := &countingFactory{}
	c := NewCache(testStore(t, "whisper-tiny"), factory.New)

	eng1, err := c.EnsureLoaded(context.Background(), "whisper-tiny")
	if err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	eng2, err := c.EnsureLoaded(context.Background(), "whisper-tiny")
	if err != nil {
		t.Fatalf("EnsureLoaded again: %v", err)
	}
	if eng1 != eng2 {
		t.Error("second EnsureLoaded built a new engine")
	}
	if len(factory.built) != 1 || factory.built[0].Loads() != 1 {
		t.Errorf("built=%d loads=%d, want one engine loaded once", len(factory.built), factory.built[0].Loads())
	}

	name, path, ok := c.Current()
	if !ok || name != "whisper-tiny" || path == "" {
		t.Errorf("Current = %q %q %v", name, path, ok)
	}
}

func TestCacheRejectsMissingModels(t *testing.T) {
	c := NewCache(testStore(t), (&countingFactory{}).New)

	_, err := c.EnsureLoaded(context.Background(), "whisper-tiny")
	if !errors.Is(err, model.ErrNotDownloaded) {
		t.Fatalf("err = %v, want ErrNotDownloaded", err)
	}
	_, err = c.EnsureLoaded(context.Background(), "whisper-xxl")
	if !errors.Is(err, model.ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
	if _, _, ok := c.Current(); ok {
		t.Error("cache reports a resident model after failed loads")
	}
}

func TestCacheFallsBackToDownloadedDefault(t *testing.T) {
	factory := &countingFactory{}
	c := NewCache(testStore(t, "whisper-base"), factory.New)

	if _, err := c.EnsureLoaded(context.Background(), "some-retired-model"); err != nil {
		t.Fatalf("EnsureLoaded with unknown preferred: %v", err)
	}
	name, _, ok := c.Current()
	if !ok || name != "whisper-base" {
		t.Fatalf("Current = %q %v, want whisper-base fallback", name, ok)
	}

	// Repeated calls with the same unknown name reuse the fallback.
	if _, err := c.EnsureLoaded(context.Background(), "some-retired-model"); err != nil {
		t.Fatalf("EnsureLoaded again: %v", err)
	}
	if len(factory.built) != 1 || factory.built[0].Loads() != 1 {
		t.Errorf("built=%d loads=%d, want one engine loaded once", len(factory.built), factory.built[0].Loads())
	}
}

func TestCacheSwapsOnModelChange(t *testing.T) {
	factory := &countingFactory{}
	c := NewCache(testStore(t, "whisper-tiny", "whisper-base"), factory.New)

	if _, err := c.EnsureLoaded(context.Background(), "whisper-tiny"); err != nil {
		t.Fatalf("load tiny: %v", err)
	}
	if _, err := c.EnsureLoaded(context.Background(), "whisper-base"); err != nil {
		t.Fatalf("swap to base: %v", err)
	}

	if len(factory.built) != 2 {
		t.Fatalf("built %d engines, want 2", len(factory.built))
	}
	// The first engine must have been unloaded by the swap.
	if _, err := factory.built[0].Transcribe(context.Background(), "x.wav"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("old engine still loaded after swap: %v", err)
	}
	name, _, ok := c.Current()
	if !ok || name != "whisper-base" {
		t.Errorf("Current = %q %v, want whisper-base", name, ok)
	}
}

func TestCacheUnload(t *testing.T) {
	factory := &countingFactory{}
	c := NewCache(testStore(t, "whisper-tiny"), factory.New)

	if _, err := c.EnsureLoaded(context.Background(), "whisper-tiny"); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	c.Unload()
	if _, _, ok := c.Current(); ok {
		t.Error("Current reports resident model after Unload")
	}
	if _, ok := c.IdleFor(); ok {
		t.Error("IdleFor reports a resident model after Unload")
	}
	// Unload on a cold cache is a no-op.
	c.Unload()
}

func TestCacheIdleClock(t *testing.T) {
	factory := &countingFactory{}
	c := NewCache(testStore(t, "whisper-tiny"), factory.New)

	clock := time.Unix(1700000000, 0)
	c.now = func() time.Time { return clock }

	if _, err := c.EnsureLoaded(context.Background(), "whisper-tiny"); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}

	clock = clock.Add(90 * time.Second)
	idle, ok := c.IdleFor()
	if !ok || idle != 90*time.Second {
		t.Errorf("IdleFor = %v %v, want 90s", idle, ok)
	}

	// Reuse resets the idle clock.
	if _, err := c.EnsureLoaded(context.Background(), "whisper-tiny"); err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	idle, ok = c.IdleFor()
	if !ok || idle != 0 {
		t.Errorf("IdleFor after reuse = %v %v, want 0", idle, ok)
	}
}

func TestCacheLoadFailureStaysCold(t *testing.T) {
	loadErr := errors.New("bad weights")
	factory := func(model.Engine) (Engine, error) {
		return &Fake{LoadErr: loadErr}, nil
	}
	c := NewCache(testStore(t, "whisper-tiny"), factory)

	_, err := c.EnsureLoaded(context.Background(), "whisper-tiny")
	if !errors.Is(err, loadErr) {
		t.Fatalf("err = %v, want load error", err)
	}
	if _, _, ok := c.Current(); ok {
		t.Error("cache reports resident model after load failure")
	}
}
