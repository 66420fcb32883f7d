// Package version parses and orders the revision labels that asset folders
// carry (for example "1.0", "v2.3.1" or "latest").
package version

import (
	"errors"
	"strconv"
	"strings"
)

// LatestLabel is the sentinel label that compares greater than every
// numeric version.
const LatestLabel = "latest"

// ErrNilVersion is returned by Of when no label is given at all.
var ErrNilVersion = errors.New("version label is empty")

// Version is either the latest sentinel or a sequence of non-negative
// integer components. The zero value is not a valid version; use Of.
type Version struct {
	latest     bool
	components []int
}

// Of parses a version label. An empty label is an error. A label that is
// present but not a version (for example "1." or "draft") yields nil and no
// error so callers can treat the folder as unversioned.
func Of(raw string) (*Version, error) {
	if raw == "" {
		return nil, ErrNilVersion
	}
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, LatestLabel) {
		return &Version{latest: true}, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ".")
	components := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, nil
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return nil, nil
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, nil
		}
		components = append(components, n)
	}
	return &Version{components: components}, nil
}

// MustOf is like Of but panics when the label is not a version.
func MustOf(raw string) *Version {
	v, err := Of(raw)
	if err != nil {
		panic(err)
	}
	if v == nil {
		panic("version: not a version label: " + raw)
	}
	return v
}

// IsLatest reports whether v is the latest sentinel.
func (v *Version) IsLatest() bool {
	return v.latest
}

// Components returns a copy of the numeric components.
func (v *Version) Components() []int {
	out := make([]int, len(v.components))
	copy(out, v.components)
	return out
}

// Compare returns -1, 0 or +1. Components are compared pairwise; when one
// version is a strict prefix of the other the shorter one is smaller.
func (v *Version) Compare(other *Version) int {
	switch {
	case v.latest && other.latest:
		return 0
	case v.latest:
		return 1
	case other.latest:
		return -1
	}

	n := min(len(v.components), len(other.components))
	for i := 0; i < n; i++ {
		a, b := v.components[i], other.components[i]
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}
	switch {
	case len(v.components) < len(other.components):
		return -1
	case len(v.components) > len(other.components):
		return 1
	}
	return 0
}

// Less reports whether v orders before other.
func (v *Version) Less(other *Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other denote the same version.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

// String renders the canonical label ("latest" or dotted components).
func (v *Version) String() string {
	if v.latest {
		return LatestLabel
	}
	parts := make([]string, len(v.components))
	for i, c := range v.components {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// Latest returns the name with the greatest version among names. Names that
// are not versions are ignored; ok is false when none of them is.
func Latest(names []string) (name string, ok bool) {
	var best *Version
	for _, n := range names {
		v, err := Of(n)
		if err != nil || v == nil {
			continue
		}
		if best == nil || best.Less(v) {
			best = v
			name = n
		}
	}
	return name, best != nil
}
