// Package dataset holds the registry of dataset specs: identity, partition
// layout, canonical schema and view naming for everything stored in the lake.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"cn-data/internal/model"
)

// ErrNotRegistered is returned by Lookup for unknown dataset names.
var ErrNotRegistered = errors.New("dataset not registered")

var validate = validator.New()

// Spec describes one dataset. Treated as immutable once registered.
type Spec struct {
	Name          string       `validate:"required"`
	Variants      []string     `validate:"required,min=1,dive,required"`
	PartitionKeys []string     `validate:"required,min=1,dive,required"`
	Schema        model.Schema `validate:"required,min=1"`

	// EnsureReady prepares the variant directory so that Glob always matches
	// at least one file (writing a zero-row placeholder when empty). Called
	// by the view manager before view creation.
	EnsureReady func(ctx context.Context, root, variant string) error `validate:"-"`
}

// Validate reports the first configuration problem of the spec.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid dataset spec %q: %w", s.Name, err)
	}
	return nil
}

// HasVariant reports whether variant is declared by the spec.
func (s Spec) HasVariant(variant string) bool {
	for _, v := range s.Variants {
		if v == variant {
			return true
		}
	}
	return false
}

// ViewName returns the logical view name for a variant, e.g. ohlcva_1d_v.
func (s Spec) ViewName(variant string) string {
	return fmt.Sprintf("%s_%s_v", s.Name, variant)
}

// VariantDir returns the filesystem directory holding a variant's partitions.
func (s Spec) VariantDir(root, variant string) string {
	return filepath.Join(root, s.Name, variant)
}

// Glob returns the partition file glob for a variant, slash-separated for the
// SQL engine regardless of platform. The temp suffix used during writes never
// matches it.
func (s Spec) Glob(root, variant string) string {
	parts := []string{filepath.ToSlash(root), s.Name, variant}
	for _, k := range s.PartitionKeys {
		parts = append(parts, k+"=*")
	}
	parts = append(parts, "part-*.parquet")
	return path.Join(parts...)
}

// Registry maps dataset names to specs. Instances are constructed and
// injected explicitly; there is no process-global registry.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register validates and stores the spec. Re-registering a name replaces the
// previous spec (idempotent by name).
func (r *Registry) Register(s Spec) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[s.Name] = s
	return nil
}

func (r *Registry) Lookup(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return s, nil
}

// List returns all registered specs sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EnsureReady runs the spec's EnsureReady hook for every variant.
func (r *Registry) EnsureReady(ctx context.Context, name, root string) error {
	s, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if s.EnsureReady == nil {
		return nil
	}
	for _, v := range s.Variants {
		if err := s.EnsureReady(ctx, root, v); err != nil {
			return fmt.Errorf("ensure %s/%s ready: %w", name, v, err)
		}
	}
	return nil
}
