// Package registry catalogs schema versions by family and version and loads
// each one lazily, caching the result.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/schema"
)

// ErrNotResolved is matched by every ResolveError via errors.Is
var ErrNotResolved = errors.New("schema not resolved")

// ResolveError reports a specifier or family with no registry match
type ResolveError struct {
	Specifier string
	Reason    string
	Available []string
}

func (e *ResolveError) Error() string {
	msg := e.Reason
	if len(e.Available) > 0 {
		msg += ". Available: " + strings.Join(e.Available, ", ")
	} else {
		msg += " (no schemas registered)"
	}
	return msg
}

func (e *ResolveError) Is(target error) bool {
	return target == ErrNotResolved
}

// Loader builds the model of one registered schema
type Loader func(ctx context.Context) (*schema.Model, error)

// Entry is one registered schema. Its model is loaded on the first call to
// Model and cached, together with any load error other than a cancelled or
// expired context.
type Entry struct {
	Key    VersionKey
	Source string

	load   Loader
	mu     sync.Mutex
	loaded bool
	model  *schema.Model
	err    error
}

// Model loads the entry's model on first use. Concurrent callers wait for one
// load. A load that fails because ctx ended is retried by the next caller.
func (e *Entry) Model(ctx context.Context) (*schema.Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.model, e.err
	}

	debug.Debug("loading schema", "key", e.Key.String(), "source", e.Source)
	model, err := e.load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		debug.Warn("schema load failed", "key", e.Key.String(), "error", err)
	}
	e.model, e.err, e.loaded = model, err, true
	return model, err
}

// Registry maps version keys to lazily loaded schema models
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	defaultKey string
}

// Option configures a Registry
type Option func(*Registry)

// WithDefault sets the configured default specifier used when Resolve is
// called without one
func WithDefault(specifier string) Option {
	return func(r *Registry) {
		r.defaultKey = strings.TrimSpace(specifier)
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]*Entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds key to a loader. source is shown in listings.
func (r *Registry) Register(key VersionKey, source string, load Loader) error {
	if load == nil {
		return fmt.Errorf("no loader for %s", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key.String()]; ok {
		return fmt.Errorf("schema %s already registered from %s", key, existing.Source)
	}
	r.entries[key.String()] = &Entry{Key: key, Source: source, load: load}
	return nil
}

// Default returns the configured default specifier, if any
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultKey
}

// Len returns the number of registered schemas
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns all entries ordered by family, then version
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Entry) int {
		if c := strings.Compare(string(a.Key.Family), string(b.Key.Family)); c != 0 {
			return c
		}
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		return strings.Compare(a.Key.Version, b.Key.Version)
	})
	return out
}

// Keys returns every registered key string, sorted
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get looks up an entry by specifier ("eppm:24.12", "ppm:23.04" or a bare
// version meaning EPPM). A version that differs only in zero padding
// ("24.12.0") matches too.
func (r *Registry) Get(specifier string) (*Entry, error) {
	key, err := ParseKey(specifier)
	if err != nil {
		return nil, &ResolveError{
			Specifier: specifier,
			Reason:    fmt.Sprintf("invalid schema key '%s': %v", specifier, err),
			Available: r.Keys(),
		}
	}

	r.mu.RLock()
	e, ok := r.entries[key.String()]
	if !ok {
		for _, candidate := range r.entries {
			if candidate.Key.Family == key.Family && candidate.Key.Compare(key) == 0 {
				e, ok = candidate, true
				break
			}
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil, &ResolveError{
			Specifier: specifier,
			Reason:    fmt.Sprintf("schema '%s' not found", specifier),
			Available: r.Keys(),
		}
	}
	return e, nil
}

// Latest returns the key with the greatest version in family. An empty family
// means EPPM.
func (r *Registry) Latest(family schema.Family) (VersionKey, error) {
	e, err := r.latestEntry(family)
	if err != nil {
		return VersionKey{}, err
	}
	return e.Key, nil
}

func (r *Registry) latestEntry(family schema.Family) (*Entry, error) {
	if family == "" {
		family = schema.FamilyEPPM
	}

	var latest *Entry
	for _, e := range r.Entries() {
		if e.Key.Family != family {
			continue
		}
		if latest == nil || e.Key.Compare(latest.Key) >= 0 {
			latest = e
		}
	}
	if latest == nil {
		return nil, &ResolveError{
			Reason:    fmt.Sprintf("no %s schemas found in registry", family.DisplayName()),
			Available: r.Keys(),
		}
	}
	return latest, nil
}

// Select picks the entry for specifier. An empty specifier falls back to the
// configured default, then to the latest EPPM schema. A specifier or default
// that does not match is an error, never a fallback.
func (r *Registry) Select(specifier string) (*Entry, error) {
	specifier = strings.TrimSpace(specifier)
	if specifier != "" {
		return r.Get(specifier)
	}
	if def := r.Default(); def != "" {
		e, err := r.Get(def)
		if err != nil {
			var re *ResolveError
			if errors.As(err, &re) {
				re.Reason = "configured default " + re.Reason
			}
			return nil, err
		}
		return e, nil
	}
	return r.latestEntry(schema.FamilyEPPM)
}

// Resolve selects an entry (see Select) and returns its loaded model
func (r *Registry) Resolve(ctx context.Context, specifier string) (*schema.Model, error) {
	e, err := r.Select(specifier)
	if err != nil {
		return nil, err
	}
	return e.Model(ctx)
}
