package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/p6schema/internal/schema"
)

func mustKey(t *testing.T, s string) VersionKey {
	t.Helper()
	k, err := ParseKey(s)
	require.NoError(t, err)
	return k
}

func staticLoader(version string) Loader {
	return func(ctx context.Context) (*schema.Model, error) {
		return schema.NewModel(&schema.RawSchema{Version: version, Tables: []schema.RawTable{{Name: "PROJECT"}}})
	}
}

func newRegistry(t *testing.T, keys []string, opts ...Option) *Registry {
	t.Helper()
	r := New(opts...)
	for _, k := range keys {
		key := mustKey(t, k)
		require.NoError(t, r.Register(key, k+".xml", staticLoader(key.Version)))
	}
	return r
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in         string
		wantFamily schema.Family
		wantVer    string
		wantErr    bool
	}{
		{"eppm:24.12", schema.FamilyEPPM, "24.12", false},
		{"PPM:23.04", schema.FamilyPPM, "23.04", false},
		{"24.12", schema.FamilyEPPM, "24.12", false},
		{" eppm:2412.0000.0000.0006 ", schema.FamilyEPPM, "2412.0000.0000.0006", false},
		{"cloud:24.12", "", "", true},
		{"eppm:", "", "", true},
		{"eppm:v24.12", "", "", true},
		{"eppm:24.12-beta", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFamily, k.Family)
			assert.Equal(t, tt.wantVer, k.Version)
			assert.Equal(t, string(tt.wantFamily)+":"+tt.wantVer, k.String())
		})
	}
}

func TestVersionKeyCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"23.04", "23.10", -1},
		{"23.10", "23.4", 1},
		{"23.12", "23.12", 0},
		{"24.12", "24.12.0.0", 0},
		{"24.12", "24.12.0.1", -1},
		{"24.9.5", "24.12", -1},
		{"2412.0000.0000.0006", "2412.0.0.5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, b := mustKey(t, tt.a), mustKey(t, tt.b)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}

	assert.Equal(t, -1, VersionKey{}.Compare(mustKey(t, "1")))
	assert.Equal(t, 0, VersionKey{}.Compare(VersionKey{}))
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"minor versions", []string{"eppm:23.04", "eppm:23.12", "eppm:23.10"}, "eppm:23.12"},
		{"major versions", []string{"eppm:24.12", "eppm:20.12"}, "eppm:24.12"},
		{"unequal component counts", []string{"eppm:24.12", "eppm:24.12.0.1", "eppm:24.9.9.9"}, "eppm:24.12.0.1"},
		{"other family ignored", []string{"eppm:20.12", "ppm:25.01"}, "eppm:20.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, tt.keys)
			k, err := r.Latest(schema.FamilyEPPM)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.String())
		})
	}
}

func TestLatestEmptyFamily(t *testing.T) {
	r := newRegistry(t, []string{"eppm:24.12"})

	k, err := r.Latest("")
	require.NoError(t, err)
	assert.Equal(t, "eppm:24.12", k.String())

	_, err = r.Latest(schema.FamilyPPM)
	assert.ErrorIs(t, err, ErrNotResolved)
	assert.ErrorContains(t, err, "no PPM schemas found")
}

func TestSelectPolicy(t *testing.T) {
	keys := []string{"eppm:23.12", "eppm:24.12", "ppm:23.04"}

	t.Run("explicit key wins", func(t *testing.T) {
		r := newRegistry(t, keys, WithDefault("ppm:23.04"))
		e, err := r.Select("eppm:23.12")
		require.NoError(t, err)
		assert.Equal(t, "eppm:23.12", e.Key.String())
	})

	t.Run("bare version means eppm", func(t *testing.T) {
		r := newRegistry(t, keys)
		e, err := r.Select("23.12")
		require.NoError(t, err)
		assert.Equal(t, "eppm:23.12", e.Key.String())
	})

	t.Run("padded version matches", func(t *testing.T) {
		r := newRegistry(t, keys)
		e, err := r.Select("eppm:24.12.0")
		require.NoError(t, err)
		assert.Equal(t, "eppm:24.12", e.Key.String())
	})

	t.Run("configured default", func(t *testing.T) {
		r := newRegistry(t, keys, WithDefault("ppm:23.04"))
		e, err := r.Select("")
		require.NoError(t, err)
		assert.Equal(t, "ppm:23.04", e.Key.String())
	})

	t.Run("latest eppm without default", func(t *testing.T) {
		r := newRegistry(t, keys)
		e, err := r.Select("")
		require.NoError(t, err)
		assert.Equal(t, "eppm:24.12", e.Key.String())
	})

	t.Run("missing explicit key is an error", func(t *testing.T) {
		r := newRegistry(t, keys)
		_, err := r.Select("eppm:25.01")

		var re *ResolveError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "eppm:25.01", re.Specifier)
		assert.Equal(t, []string{"eppm:23.12", "eppm:24.12", "ppm:23.04"}, re.Available)
		assert.Contains(t, err.Error(), "Available: eppm:23.12, eppm:24.12, ppm:23.04")
	})

	t.Run("missing configured default is not replaced by latest", func(t *testing.T) {
		r := newRegistry(t, keys, WithDefault("eppm:22.12"))
		_, err := r.Select("")
		assert.ErrorIs(t, err, ErrNotResolved)
		assert.ErrorContains(t, err, "configured default schema 'eppm:22.12' not found")
	})

	t.Run("empty registry", func(t *testing.T) {
		_, err := New().Select("")
		assert.ErrorIs(t, err, ErrNotResolved)
		assert.ErrorContains(t, err, "no schemas registered")
	})
}

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry(t, []string{"eppm:24.12"})
	err := r.Register(mustKey(t, "eppm:24.12"), "other.xml", staticLoader("24.12"))
	assert.ErrorContains(t, err, "already registered")

	assert.Error(t, r.Register(mustKey(t, "eppm:25.01"), "x.xml", nil))
}

func TestEntriesOrder(t *testing.T) {
	r := newRegistry(t, []string{"ppm:23.04", "eppm:24.12", "eppm:23.10", "eppm:23.4"})

	var got []string
	for _, e := range r.Entries() {
		got = append(got, e.Key.String())
	}
	assert.Equal(t, []string{"eppm:23.4", "eppm:23.10", "eppm:24.12", "ppm:23.04"}, got)
	assert.Equal(t, []string{"eppm:23.10", "eppm:23.4", "eppm:24.12", "ppm:23.04"}, r.Keys())
	assert.Equal(t, 4, r.Len())
}

func TestResolveLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	r := New()
	require.NoError(t, r.Register(mustKey(t, "eppm:24.12"), "eppm.xml", func(ctx context.Context) (*schema.Model, error) {
		calls.Add(1)
		return schema.NewModel(&schema.RawSchema{Version: "24.12"})
	}))

	const readers = 32
	models := make([]*schema.Model, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Resolve(context.Background(), "eppm:24.12")
			assert.NoError(t, err)
			models[i] = m
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, m := range models {
		assert.Same(t, models[0], m)
	}
}

func TestResolveCachesLoadError(t *testing.T) {
	var calls atomic.Int32
	loadErr := errors.New("boom")
	r := New()
	require.NoError(t, r.Register(mustKey(t, "eppm:24.12"), "eppm.xml", func(ctx context.Context) (*schema.Model, error) {
		calls.Add(1)
		return nil, loadErr
	}))
	require.NoError(t, r.Register(mustKey(t, "eppm:23.12"), "ok.xml", staticLoader("23.12")))

	_, err := r.Resolve(context.Background(), "eppm:24.12")
	assert.ErrorIs(t, err, loadErr)
	_, err = r.Resolve(context.Background(), "eppm:24.12")
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, int32(1), calls.Load())

	m, err := r.Resolve(context.Background(), "eppm:23.12")
	require.NoError(t, err)
	assert.Equal(t, "23.12", m.Version)
}

func TestResolveRetriesAfterCancel(t *testing.T) {
	var calls atomic.Int32
	r := New()
	require.NoError(t, r.Register(mustKey(t, "eppm:24.12"), "eppm.xml", func(ctx context.Context) (*schema.Model, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return staticLoader("24.12")(ctx)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, "eppm:24.12")
	assert.ErrorIs(t, err, context.Canceled)

	m, err := r.Resolve(context.Background(), "eppm:24.12")
	require.NoError(t, err)
	assert.Equal(t, "24.12", m.Version)

	_, err = r.Resolve(context.Background(), "eppm:24.12")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

const discoverXML = `<SCHEMA VERSION="24.12"><TABLE NAME="PROJECT"><FIELD NAME="proj_id" DATATYPE="INTEGER"/></TABLE></SCHEMA>`

func TestDiscover(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, name := range []string{
		"eppm_24_12_schema.xml",
		"EPPM_23_10_schema.xml",
		"ppm_23_04_schema.xml",
		"eppm_25_01_0_2_schema.xml",
		"notes.txt",
		"eppm_latest_schema.xml",
	} {
		require.NoError(t, afero.WriteFile(fsys, "schemas/"+name, []byte(discoverXML), 0o644))
	}
	require.NoError(t, fsys.MkdirAll("schemas/eppm_99_99_schema.xml", 0o755))

	r := New()
	n, err := r.Discover(fsys, "schemas")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"eppm:23.10", "eppm:24.12", "eppm:25.01.0.2", "ppm:23.04"}, r.Keys())

	latest, err := r.Latest(schema.FamilyEPPM)
	require.NoError(t, err)
	assert.Equal(t, "eppm:25.01.0.2", latest.String())

	m, err := r.Resolve(context.Background(), "ppm:23.04")
	require.NoError(t, err)
	assert.Equal(t, schema.FamilyPPM, m.Family)
	assert.Equal(t, "24.12", m.Version)
	assert.Equal(t, []string{"PROJECT"}, m.TableNames())
}

func TestDiscoverMissingDirectory(t *testing.T) {
	r := New()
	n, err := r.Discover(afero.NewMemMapFs(), "nowhere")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiscoverSkipsDuplicateKey(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, name := range []string{
		"EPPM_24_12_schema.xml",
		"eppm_24_12_schema.xml",
		"eppm_25_01_schema.xml",
	} {
		require.NoError(t, afero.WriteFile(fsys, "schemas/"+name, []byte(discoverXML), 0o644))
	}

	r := New()
	n, err := r.Discover(fsys, "schemas")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"eppm:24.12", "eppm:25.01"}, r.Keys())

	e, err := r.Get("eppm:24.12")
	require.NoError(t, err)
	assert.Equal(t, "schemas/EPPM_24_12_schema.xml", e.Source)
}
