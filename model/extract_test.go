package model

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// buildTarGz creates an archive from path->content pairs. Paths ending
// in / become directories.
func buildTarGz(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := entries[name]
		if strings.HasSuffix(name, "/") {
			if err := tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
				t.Fatal(err)
			}
			continue
		}
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, m *Manager, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(path, buildTarGz(t, entries), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractPromotesSingleTopDir(t *testing.T) {
	m := newTestManager(t)
	archive := writeArchive(t, m, map[string]string{
		"parakeet-v2-int8/encoder.onnx": "enc",
		"parakeet-v2-int8/decoder.onnx": "dec",
	})

	def := Definition{Name: "parakeet-v2", Dir: true}
	if err := m.extractArchive(archive, def); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}

	// The wrapper directory is stripped.
	for _, f := range []string{"encoder.onnx", "decoder.onnx"} {
		if _, err := os.Stat(filepath.Join(m.Dir(), "parakeet-v2", f)); err != nil {
			t.Errorf("missing %s after extraction: %v", f, err)
		}
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), "parakeet-v2.extracting")); !os.IsNotExist(err) {
		t.Error("scratch dir left behind")
	}
}

func TestExtractFlatArchive(t *testing.T) {
	m := newTestManager(t)
	archive := writeArchive(t, m, map[string]string{
		"encoder.onnx": "enc",
		"vocab.txt":    "v",
	})

	if err := m.extractArchive(archive, Definition{Name: "flat", Dir: true}); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), "flat", "encoder.onnx")); err != nil {
		t.Errorf("flat archive content missing: %v", err)
	}
}

func TestExtractSkipsPackagingJunk(t *testing.T) {
	m := newTestManager(t)
	archive := writeArchive(t, m, map[string]string{
		"bundle/model.onnx":        "m",
		"bundle/._model.onnx":      "resource fork",
		"__MACOSX/bundle/whatever": "junk",
	})

	if err := m.extractArchive(archive, Definition{Name: "clean", Dir: true}); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}

	root := filepath.Join(m.Dir(), "clean")
	if _, err := os.Stat(filepath.Join(root, "model.onnx")); err != nil {
		t.Fatalf("model.onnx missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "._model.onnx")); !os.IsNotExist(err) {
		t.Error("resource fork file extracted")
	}
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() == "__MACOSX" {
			t.Error("__MACOSX directory extracted")
		}
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	m := newTestManager(t)
	archive := writeArchive(t, m, map[string]string{
		"../evil.bin": "evil",
	})

	err := m.extractArchive(archive, Definition{Name: "traversal", Dir: true})
	if err == nil {
		t.Fatal("expected error for path traversal entry")
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(m.Dir()), "evil.bin")); !os.IsNotExist(statErr) {
		t.Error("traversal entry escaped the scratch dir")
	}
}

func TestExtractReplacesExisting(t *testing.T) {
	m := newTestManager(t)
	final := filepath.Join(m.Dir(), "replace")
	if err := os.MkdirAll(final, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(final, "stale.bin"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := writeArchive(t, m, map[string]string{"fresh.bin": "new"})
	if err := m.extractArchive(archive, Definition{Name: "replace", Dir: true}); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(final, "stale.bin")); !os.IsNotExist(err) {
		t.Error("stale content survived re-extraction")
	}
	if _, err := os.Stat(filepath.Join(final, "fresh.bin")); err != nil {
		t.Errorf("fresh content missing: %v", err)
	}
}

func TestExtractCleansStaleScratch(t *testing.T) {
	m := newTestManager(t)
	scratch := filepath.Join(m.Dir(), "resumed.extracting")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "partial"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := writeArchive(t, m, map[string]string{"whole.bin": "y"})
	if err := m.extractArchive(archive, Definition{Name: "resumed", Dir: true}); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	final := filepath.Join(m.Dir(), "resumed")
	if _, err := os.Stat(filepath.Join(final, "partial")); !os.IsNotExist(err) {
		t.Error("stale scratch content leaked into the final dir")
	}
	if _, err := os.Stat(filepath.Join(final, "whole.bin")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}
