package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testInfo(m *Manager, name, url string) Info {
	def := Definition{Name: name, Engine: EngineWhisper, URL: url}
	return Info{Definition: def, Path: filepath.Join(m.Dir(), name+".bin")}
}

func TestFetchFileModel(t *testing.T) {
	content := []byte("pretend model weights")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	m := newTestManager(t)
	info := testInfo(m, "test-model", srv.URL)

	var lastDone, lastTotal int64
	err := m.fetch(context.Background(), info, func(done, total int64) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	got, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatalf("read installed model: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("installed bytes = %q, want %q", got, content)
	}
	if lastDone != int64(len(content)) || lastTotal != int64(len(content)) {
		t.Errorf("final progress = %d/%d, want %d/%d", lastDone, lastTotal, len(content), len(content))
	}

	// No stray temp files
	entries, _ := os.ReadDir(m.Dir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".vox-download-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFetchVerifiesChecksum(t *testing.T) {
	content := []byte("checked bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	m := newTestManager(t)

	sum := sha256.Sum256(content)
	info := testInfo(m, "good", srv.URL)
	info.SHA256 = hex.EncodeToString(sum[:])
	if err := m.fetch(context.Background(), info, nil); err != nil {
		t.Fatalf("fetch with matching checksum: %v", err)
	}

	bad := testInfo(m, "bad", srv.URL)
	bad.SHA256 = strings.Repeat("ab", 32)
	err := m.fetch(context.Background(), bad, nil)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("err = %v, want checksum mismatch", err)
	}
	if _, statErr := os.Stat(bad.Path); !os.IsNotExist(statErr) {
		t.Error("artifact installed despite checksum mismatch")
	}
}

func TestFetchHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := newTestManager(t)
	info := testInfo(m, "gone", srv.URL)
	if err := m.fetch(context.Background(), info, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(info.Path); !os.IsNotExist(err) {
		t.Error("artifact installed from failed download")
	}
}

func TestFetchDirModel(t *testing.T) {
	archive := buildTarGz(t, map[string]string{
		"bundle/encoder.onnx": "enc",
		"bundle/vocab.txt":    "vocab",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	m := newTestManager(t)
	info := Info{
		Definition: Definition{Name: "test-pack", Engine: EngineParakeet, URL: srv.URL, Dir: true},
		Path:       filepath.Join(m.Dir(), "test-pack"),
	}
	if err := m.fetch(context.Background(), info, nil); err != nil {
		t.Fatalf("fetch dir model: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(info.Path, "encoder.onnx"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "enc" {
		t.Errorf("extracted bytes = %q, want %q", got, "enc")
	}
}

func TestDownloadIdempotent(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(m.Dir(), "whisper-tiny.bin")
	if err := os.WriteFile(path, []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A nil client would panic on any network use.
	m.client = nil
	if err := m.Download(context.Background(), "whisper-tiny", nil); err != nil {
		t.Fatalf("Download of present model: %v", err)
	}
}

func TestDownloadUnknownModel(t *testing.T) {
	m := newTestManager(t)
	err := m.Download(context.Background(), "whisper-xxl", nil)
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}
}
