package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// LoadState is where a lazily-loaded module sits in its lifecycle (§4.1).
type LoadState string

const (
	LoadPending LoadState = "pending"
	LoadLoading LoadState = "loading"
	LoadLoaded  LoadState = "loaded"
	LoadFailed  LoadState = "failed"
)

// ModuleDescriptor registers a detector module without loading its code.
// ExportName names the value the loader function hands back within the
// module (e.g. a constructor or factory); it is opaque to the loader
// itself, which only cares about the function that produces a Detector.
type ModuleDescriptor struct {
	ID         string
	Info       Info
	ModulePath string
	ExportName string
	Options    map[string]any
}

// LoaderFunc produces a Detector for a descriptor, given its Options. Real
// modules resolve ModulePath/ExportName into a constructor; tests and the
// builtin corpus can register a LoaderFunc directly.
type LoaderFunc func(ctx context.Context, desc ModuleDescriptor) (Detector, error)

// ModuleStatus reports a module's current load state for status queries.
type ModuleStatus struct {
	ID    string
	State LoadState
	Err   error
}

// loadState is the single in-flight promise for one module id: whichever
// goroutine calls Ensure first runs load; everyone else's call blocks on
// the same sync.Once and observes the same (detector, err) pair.
type loadState struct {
	once     sync.Once
	detector Detector
	err      error
	state    LoadState
}

// Loader keeps module descriptors and lazily resolves them to Detectors on
// first use, registering the result with a Registry.
type Loader struct {
	mu       sync.Mutex
	descs    map[string]ModuleDescriptor
	fns      map[string]LoaderFunc
	loads    sync.Map // id -> *loadState
	registry *Registry
	logger   *slog.Logger
}

// NewLoader creates a Loader that registers successfully-loaded detectors
// into registry.
func NewLoader(registry *Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		descs:    make(map[string]ModuleDescriptor),
		fns:      make(map[string]LoaderFunc),
		registry: registry,
		logger:   logger.With("component", "pattern-loader"),
	}
}

// Register records a module descriptor and the function that resolves it,
// without invoking fn. Registering an id a second time replaces both the
// descriptor and any completed or in-flight load state for it.
func (l *Loader) Register(desc ModuleDescriptor, fn LoaderFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.descs[desc.ID] = desc
	l.fns[desc.ID] = fn
	l.loads.Delete(desc.ID)
}

// Unregister removes both the loader record and, if present, the detector's
// registry entry (§4.1: "unregister removes both loader record and
// registry entry").
func (l *Loader) Unregister(id string) {
	l.mu.Lock()
	delete(l.descs, id)
	delete(l.fns, id)
	l.mu.Unlock()
	l.loads.Delete(id)
	if l.registry != nil {
		l.registry.Unregister(id)
	}
}

// Status reports a module's lifecycle state. Returns (ModuleStatus{}, false)
// for an id that was never registered.
func (l *Loader) Status(id string) (ModuleStatus, bool) {
	l.mu.Lock()
	_, known := l.descs[id]
	l.mu.Unlock()
	if !known {
		return ModuleStatus{}, false
	}
	v, ok := l.loads.Load(id)
	if !ok {
		return ModuleStatus{ID: id, State: LoadPending}, true
	}
	ls := v.(*loadState)
	return ModuleStatus{ID: id, State: ls.state, Err: ls.err}, true
}

// Ensure loads (or returns the already-loaded) Detector for id, registering
// it into the Loader's Registry on first successful load. Concurrent
// Ensure calls for the same id share a single in-flight load via
// sync.Once, so the module path is only ever resolved once regardless of
// how many callers are racing to use it.
func (l *Loader) Ensure(ctx context.Context, id string) (Detector, error) {
	l.mu.Lock()
	desc, ok := l.descs[id]
	fn := l.fns[id]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("pattern loader: module %q not registered", id)
	}

	actual, _ := l.loads.LoadOrStore(id, &loadState{state: LoadPending})
	ls := actual.(*loadState)

	ls.once.Do(func() {
		ls.state = LoadLoading
		det, err := fn(ctx, desc)
		if err != nil {
			ls.err = fmt.Errorf("pattern loader: loading %q: %w", id, err)
			ls.state = LoadFailed
			l.logger.Warn("module load failed", "id", id, "error", err)
			return
		}
		ls.detector = det
		ls.state = LoadLoaded
		if l.registry != nil {
			if rerr := l.registry.Register(det, RegisterOptions{Override: true}); rerr != nil {
				ls.err = rerr
				ls.state = LoadFailed
				l.logger.Warn("module registration failed", "id", id, "error", rerr)
			}
		}
	})

	return ls.detector, ls.err
}

// Descriptors returns every registered module descriptor, in no particular
// order.
func (l *Loader) Descriptors() []ModuleDescriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ModuleDescriptor, 0, len(l.descs))
	for _, d := range l.descs {
		out = append(out, d)
	}
	return out
}
