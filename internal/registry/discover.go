package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/loader"
	"github.com/tordrt/p6schema/internal/schema"
)

// fileNamePattern matches eppm_24_12_schema.xml, ppm_23_04_schema.xml and
// longer versions such as eppm_24_12_0_1_schema.xml
var fileNamePattern = regexp.MustCompile(`(?i)^(eppm|ppm)_(\d+(?:_\d+)*)_schema\.xml$`)

// Discover registers every schema file in dir whose name matches the
// family_version_schema.xml convention. A missing directory registers nothing.
// A file whose key is already registered is skipped. It returns the number of
// schemas registered.
func (r *Registry) Discover(fsys afero.Fs, dir string) (int, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to stat schema directory: %w", err)
	}
	if !exists {
		debug.Debug("schema directory not found", "dir", dir)
		return 0, nil
	}

	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema directory: %w", err)
	}

	registered := 0
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		key, ok := keyFromFileName(info.Name())
		if !ok {
			debug.Debug("skipping file", "name", info.Name())
			continue
		}

		path := filepath.Join(dir, info.Name())
		if err := r.Register(key, path, FileLoader(fsys, path, key.Family)); err != nil {
			debug.Warn("skipping schema file", "path", path, "error", err)
			continue
		}
		registered++
	}

	debug.Debug("discovered schemas", "dir", dir, "count", registered)
	return registered, nil
}

// FileLoader returns a Loader that reads and validates the schema file at path
func FileLoader(fsys afero.Fs, path string, family schema.Family) Loader {
	return func(ctx context.Context) (*schema.Model, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := loader.LoadFile(fsys, path)
		if err != nil {
			return nil, err
		}
		if family != "" {
			raw.Family = family
		}
		return schema.NewModel(raw)
	}
}

func keyFromFileName(name string) (VersionKey, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return VersionKey{}, false
	}
	family, err := schema.ParseFamily(m[1])
	if err != nil {
		return VersionKey{}, false
	}
	key, err := NewVersionKey(family, strings.ReplaceAll(m[2], "_", "."))
	if err != nil {
		return VersionKey{}, false
	}
	return key, true
}
