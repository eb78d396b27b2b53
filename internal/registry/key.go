package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/tordrt/p6schema/internal/schema"
)

var numericVersion = regexp.MustCompile(`^\d+(\.\d+)*$`)

// VersionKey identifies one schema: an application family plus a dot-separated
// numeric version. Keys order by version only; family is a filter.
type VersionKey struct {
	Family  schema.Family
	Version string

	v *version.Version
}

// NewVersionKey validates version and builds a key
func NewVersionKey(family schema.Family, ver string) (VersionKey, error) {
	ver = strings.TrimSpace(ver)
	if !numericVersion.MatchString(ver) {
		return VersionKey{}, fmt.Errorf("invalid version %q (expected dot-separated numbers, e.g. 24.12)", ver)
	}
	v, err := version.NewVersion(ver)
	if err != nil {
		return VersionKey{}, fmt.Errorf("invalid version %q: %w", ver, err)
	}
	return VersionKey{Family: family, Version: ver, v: v}, nil
}

// ParseKey parses "family:version" or a bare version, which means EPPM
func ParseKey(s string) (VersionKey, error) {
	s = strings.TrimSpace(s)
	family := schema.FamilyEPPM
	ver := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		f, err := schema.ParseFamily(prefix)
		if err != nil {
			return VersionKey{}, err
		}
		family, ver = f, rest
	}
	return NewVersionKey(family, ver)
}

// String renders the key as "family:version"
func (k VersionKey) String() string {
	return string(k.Family) + ":" + k.Version
}

// DisplayName renders the key as "EPPM 24.12"
func (k VersionKey) DisplayName() string {
	return k.Family.DisplayName() + " " + k.Version
}

// Compare orders keys by version, component-wise and numerically, treating
// missing trailing components as zero. It returns -1, 0 or +1. A zero
// VersionKey sorts before every valid key.
func (k VersionKey) Compare(other VersionKey) int {
	switch {
	case k.v == nil && other.v == nil:
		return 0
	case k.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	return k.v.Compare(other.v)
}

