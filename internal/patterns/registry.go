package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// registration is what the registry keeps per detector id.
type registration struct {
	Info         Info
	Detector     Detector
	Priority     int
	Enabled      bool
	RegisteredAt time.Time
}

// RegistryQuery filters a detector listing.
type RegistryQuery struct {
	Category        Category
	Subcategory     string
	Language        string
	DetectionMethod DetectionMethod
	Enabled         *bool
	IDPattern       string
}

// RegistryResult is the filtered listing returned by Query.
type RegistryResult struct {
	Detectors []Info
	Count     int
}

// Registry maps detector id to its registration, the way C1 describes.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*registration
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:   make(map[string]*registration),
		logger: logger.With("component", "detector-registry"),
	}
}

// RegisterOptions configures a single Register call.
type RegisterOptions struct {
	Priority int
	Override bool
}

// Register adds a detector. Registration fails if the id already exists
// unless Override is set (§4.1).
func (r *Registry) Register(d Detector, opts RegisterOptions) error {
	info := d.Info()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[info.ID]; exists && !opts.Override {
		return fmt.Errorf("detector %q already registered", info.ID)
	}

	r.byID[info.ID] = &registration{
		Info:         info,
		Detector:     d,
		Priority:     opts.Priority,
		Enabled:      true,
		RegisteredAt: time.Now(),
	}
	return nil
}

// Unregister removes a detector's registration, if present.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// SetEnabled toggles whether a registered detector runs.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("detector %q not registered", id)
	}
	reg.Enabled = enabled
	return nil
}

// Query filters the registry.
func (r *Registry) Query(q RegistryQuery) RegistryResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Info
	for id, reg := range r.byID {
		if q.Category != "" && reg.Info.Category != q.Category {
			continue
		}
		if q.Subcategory != "" && reg.Info.Subcategory != q.Subcategory {
			continue
		}
		if q.DetectionMethod != "" && reg.Info.DetectionMethod != q.DetectionMethod {
			continue
		}
		if q.Language != "" && !supportsLanguage(reg.Info.SupportedLanguages, q.Language) {
			continue
		}
		if q.Enabled != nil && reg.Enabled != *q.Enabled {
			continue
		}
		if q.IDPattern != "" && !globIDMatch(q.IDPattern, id) {
			continue
		}
		out = append(out, reg.Info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return RegistryResult{Detectors: out, Count: len(out)}
}

func globIDMatch(pattern, id string) bool {
	return MatchGlob(pattern, id)
}

// RunResult is the outcome of running every enabled, language-matching
// detector over one file.
type RunResult struct {
	DetectorID string
	Result     DetectionResult
	Err        error
}

// RunAll runs every enabled detector supporting dctx.Language over dctx,
// one task per detector, in parallel. A detector that panics or errors is
// caught and logged; its output is omitted from the aggregate but recorded
// in the per-detector RunResult slice so callers can surface
// DetectorFailure without aborting the pass (§4.1 Failure model).
func (r *Registry) RunAll(ctx context.Context, dctx Context) []RunResult {
	r.mu.RLock()
	var regs []*registration
	for _, reg := range r.byID {
		if !reg.Enabled {
			continue
		}
		if !supportsLanguage(reg.Info.SupportedLanguages, dctx.Language) {
			continue
		}
		regs = append(regs, reg)
	}
	r.mu.RUnlock()

	results := make([]RunResult, len(regs))
	// Plain errgroup.Group (no WithContext): a failing or panicking detector
	// must never cancel its siblings' context, since detector failure is
	// never fatal to the run (§4.1).
	var g errgroup.Group
	for i, reg := range regs {
		i, reg := i, reg
		g.Go(func() (gerr error) {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Warn("detector panicked", "detector", reg.Info.ID, "file", dctx.File, "panic", p)
					results[i] = RunResult{DetectorID: reg.Info.ID, Err: fmt.Errorf("detector %q panicked: %v", reg.Info.ID, p)}
				}
			}()
			res, derr := reg.Detector.Detect(ctx, dctx)
			if derr != nil {
				r.logger.Warn("detector failed", "detector", reg.Info.ID, "file", dctx.File, "error", derr)
				results[i] = RunResult{DetectorID: reg.Info.ID, Err: derr}
				return nil
			}
			results[i] = RunResult{DetectorID: reg.Info.ID, Result: res}
			return nil
		})
	}
	_ = g.Wait() // always nil: every goroutine above returns nil unconditionally
	return results
}
