package set

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/nfthash"
	nfterrors "github.com/tamirms/nfthash/errors"
)

// FileExt is the extension LoadDir looks for.
const FileExt = ".set"

// Registry maps set names and IDs to sets and counts bindings. It
// implements nfthash.SetResolver.
//
// A set that is bound to at least one expression cannot be removed.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*binding
	byID   map[uint32]*binding
	logger *zap.Logger
}

type binding struct {
	set  nfthash.Set
	uses int
}

var _ nfthash.SetResolver = (*Registry)(nil)

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byName: make(map[string]*binding),
		byID:   make(map[uint32]*binding),
		logger: logger,
	}
}

// Add registers s under its name and, when non-zero, its ID.
func (r *Registry) Add(s nfthash.Set) error {
	return r.addAll([]nfthash.Set{s})
}

// addAll registers every set in sets or, if any of them is invalid or
// collides with a registered set or another member of sets, none of them.
// Conflicts are checked and bindings inserted under one lock, so a
// concurrent AcquireSet never sees part of the batch.
func (r *Registry) addAll(sets []nfthash.Set) error {
	for _, s := range sets {
		if name := s.Name(); name == "" || len(name) > maxNameLen {
			return fmt.Errorf("%w: %q", nfterrors.ErrInvalidSetName, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(sets))
	ids := make(map[uint32]struct{}, len(sets))
	for _, s := range sets {
		name := s.Name()
		if _, ok := r.byName[name]; ok {
			return fmt.Errorf("%w: %q", nfterrors.ErrSetExists, name)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("%w: %q", nfterrors.ErrSetExists, name)
		}
		names[name] = struct{}{}

		if id := s.ID(); id != 0 {
			if _, ok := r.byID[id]; ok {
				return fmt.Errorf("%w: id %d", nfterrors.ErrSetExists, id)
			}
			if _, ok := ids[id]; ok {
				return fmt.Errorf("%w: id %d", nfterrors.ErrSetExists, id)
			}
			ids[id] = struct{}{}
		}
	}

	for _, s := range sets {
		b := &binding{set: s}
		r.byName[s.Name()] = b
		if id := s.ID(); id != 0 {
			r.byID[id] = b
		}
		r.logger.Debug("set registered",
			zap.String("set", s.Name()),
			zap.Uint32("id", s.ID()),
			zap.Int("key_len", s.KeyLen()),
			zap.Int("value_len", s.ValueLen()))
	}
	return nil
}

// Remove unregisters the named set. It fails with ErrSetInUse while any
// expression holds it. The set itself is not closed.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", nfterrors.ErrSetNotFound, name)
	}
	if b.uses > 0 {
		return fmt.Errorf("%w: %q has %d bindings", nfterrors.ErrSetInUse, name, b.uses)
	}
	delete(r.byName, name)
	if id := b.set.ID(); id != 0 {
		delete(r.byID, id)
	}
	r.logger.Debug("set removed", zap.String("set", name))
	return nil
}

// Get returns the named set without binding it.
func (r *Registry) Get(name string) (nfthash.Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return b.set, true
}

// Uses returns the number of expressions bound to the named set.
func (r *Registry) Uses(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.byName[name]; ok {
		return b.uses
	}
	return 0
}

// Len returns the number of registered sets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// AcquireSet implements nfthash.SetResolver. The name is tried first; a
// non-zero id is the fallback.
func (r *Registry) AcquireSet(name string, id uint32) (nfthash.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byName[name]
	if !ok && id != 0 {
		b, ok = r.byID[id]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q (id %d)", nfterrors.ErrSetNotFound, name, id)
	}
	b.uses++
	r.logger.Debug("set acquired", zap.String("set", b.set.Name()), zap.Int("uses", b.uses))
	return b.set, nil
}

// ReleaseSet implements nfthash.SetResolver.
func (r *Registry) ReleaseSet(s nfthash.Set) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byName[s.Name()]
	if !ok || b.set != s || b.uses == 0 {
		r.logger.Warn("release of unbound set", zap.String("set", s.Name()))
		return
	}
	b.uses--
	r.logger.Debug("set released", zap.String("set", s.Name()), zap.Int("uses", b.uses))
}

// LoadDir opens every *.set file in dir concurrently and registers them
// atomically. On any failure nothing is registered, no file was ever
// visible to AcquireSet, and every opened file is closed.
// It returns the number of sets loaded.
func (r *Registry) LoadDir(ctx context.Context, dir string) (int, error) {
	if err := statDir(dir); err != nil {
		return 0, fmt.Errorf("set directory: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+FileExt))
	if err != nil {
		return 0, fmt.Errorf("list set files: %w", err)
	}

	files := make([]*File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := Open(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i] = f
			if err := f.Verify(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}

	closeAll := func(primary error) error {
		errs := []error{primary}
		for _, f := range files {
			if f != nil {
				errs = append(errs, f.Close())
			}
		}
		return errors.Join(errs...)
	}

	if err := g.Wait(); err != nil {
		return 0, closeAll(err)
	}

	sets := make([]nfthash.Set, len(files))
	for i, f := range files {
		sets[i] = f
	}
	if err := r.addAll(sets); err != nil {
		return 0, closeAll(err)
	}
	r.logger.Info("set files loaded", zap.String("dir", dir), zap.Int("count", len(files)))
	return len(files), nil
}

// Close unregisters every set and closes those that hold resources.
// Bindings are not checked; call it only after expressions are destroyed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, b := range r.byName {
		if c, ok := b.set.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		delete(r.byName, name)
	}
	clear(r.byID)
	return errors.Join(errs...)
}

// ensure the file-backed and in-memory sets satisfy the interface.
var (
	_ nfthash.Set = (*File)(nil)
	_ nfthash.Set = (*Map)(nil)
)

// statDir reports whether dir exists and is a directory.
func statDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
