// Package update checks the release feed and swaps the running binary
// in place.
package update

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Repo       = "voxapp/vox"
	BinaryName = "vox"
)

type Release struct {
	Version     string
	AssetURL    string
	ChecksumURL string
}

type semver [3]int

func parseSemver(v string) (semver, error) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return semver{}, fmt.Errorf("invalid version %q", v)
	}
	var s semver
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return semver{}, fmt.Errorf("invalid version %q: %w", v, err)
		}
		s[i] = n
	}
	return s, nil
}

func (s semver) newerThan(o semver) bool {
	for i := range s {
		if s[i] != o[i] {
			return s[i] > o[i]
		}
	}
	return false
}

// NewerThan reports whether the release would upgrade current.
// Unparseable versions never upgrade.
func (r Release) NewerThan(current string) bool {
	cur, err := parseSemver(current)
	if err != nil {
		return false
	}
	rel, err := parseSemver(r.Version)
	if err != nil {
		return false
	}
	return rel.newerThan(cur)
}
