package model

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractArchive unpacks a model tar.gz into the store. Extraction goes
// to a <name>.extracting scratch directory first; the final directory
// appears in one rename, so a crash mid-extract never yields a model
// that looks downloaded.
func (m *Manager) extractArchive(archivePath string, def Definition) error {
	scratch := filepath.Join(m.dir, def.Name+".extracting")
	final := filepath.Join(m.dir, def.Name)

	// Leftovers from an interrupted run
	if err := os.RemoveAll(scratch); err != nil {
		return err
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	if err := untarGz(archivePath, scratch); err != nil {
		return err
	}

	// Archives may wrap their content in a single top-level directory;
	// promote it directly in that case.
	source := scratch
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}
	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(entries) == len(dirs) && len(dirs) == 1 {
		source = filepath.Join(scratch, dirs[0].Name())
	}

	if err := os.RemoveAll(final); err != nil {
		return err
	}
	return os.Rename(source, final)
}

func untarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}
		if skipEntry(hdr.Name) {
			continue
		}
		if !filepath.IsLocal(hdr.Name) {
			return fmt.Errorf("tar: unsafe path %q", hdr.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// symlinks and specials have no place in a model bundle
			continue
		}
	}
}

// skipEntry filters macOS packaging artifacts out of model bundles.
func skipEntry(name string) bool {
	base := filepath.Base(filepath.FromSlash(name))
	if strings.HasPrefix(base, "._") {
		return true
	}
	for _, part := range strings.Split(name, "/") {
		if part == "__MACOSX" {
			return true
		}
	}
	return false
}
