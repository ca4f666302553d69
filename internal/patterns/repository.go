package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SortField is a field Query can order results by.
type SortField string

const (
	SortByName          SortField = "name"
	SortByConfidence    SortField = "confidence"
	SortBySeverity      SortField = "severity"
	SortByFirstSeen     SortField = "firstSeen"
	SortByLastSeen      SortField = "lastSeen"
	SortByLocationCount SortField = "locationCount"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Filter narrows a pattern listing; every field is optional (zero value
// means "no constraint on this dimension").
type Filter struct {
	IDs              []string
	Categories       []Category
	Statuses         []Status
	MinConfidence    *float64
	MaxConfidence    *float64
	ConfidenceLevels []ConfidenceLevel
	Severities       []Severity
	Files            []string
	HasOutliers      *bool
	Tags             []string
	Search           string
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
}

// Sort orders a Query result.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// Pagination windows a Query result.
type Pagination struct {
	Offset int
	Limit  int
}

// QueryOptions is the combined input to Query.
type QueryOptions struct {
	Filter     Filter
	Sort       Sort
	Pagination Pagination
}

// QueryResult is what Query returns: the page plus the pre-pagination total.
type QueryResult struct {
	Patterns []Pattern
	Total    int
	HasMore  bool
}

// Summary is the lightweight projection getSummaries returns.
type Summary struct {
	ID              string
	Category        Category
	Name            string
	Status          Status
	Confidence      float64
	ConfidenceLevel ConfidenceLevel
	LocationCount   int
}

// CountFilter narrows Count; nil means unfiltered.
type CountFilter = Filter

// Repository is the durable, queryable store of patterns described by C2:
// an in-memory primary map plus per-dimension secondary indexes, guarded
// by a single writer-exclusive / reader-snapshot lock, with synchronous
// lifecycle events and status-directory persistence.
type Repository struct {
	mu          sync.RWMutex
	initialized bool
	store       *Store
	bus         *bus
	logger      *slog.Logger

	byID       map[string]*Pattern
	byCategory map[Category]map[string]bool
	byStatus   map[Status]map[string]bool
	byFile     map[string]map[string]bool
}

// NewRepository builds a Repository persisting through store.
func NewRepository(store *Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:      store,
		bus:        newBus(logger),
		logger:     logger.With("component", "pattern-repository"),
		byID:       make(map[string]*Pattern),
		byCategory: make(map[Category]map[string]bool),
		byStatus:   make(map[Status]map[string]bool),
		byFile:     make(map[string]map[string]bool),
	}
}

// Initialize loads persisted patterns (if store is non-nil) and marks the
// repository ready. Calling it again is a no-op.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	if r.store != nil {
		loaded, err := r.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("pattern repository: initialize: %w", err)
		}
		for i := range loaded {
			p := loaded[i]
			r.indexLocked(&p)
		}
		r.emitUnlocked(Event{Type: EventPatternsLoaded, Count: len(loaded)})
	}
	r.initialized = true
	return nil
}

// Close releases resources. The in-memory repository holds none beyond GC
// roots, so Close only flips the initialized flag back off.
func (r *Repository) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = false
	return nil
}

func (r *Repository) requireInitialized() error {
	if !r.initialized {
		return ErrNotInitialized
	}
	return nil
}

// indexLocked inserts/refreshes p in the primary map and every secondary
// index. Caller must hold r.mu for writing.
func (r *Repository) indexLocked(p *Pattern) {
	r.unindexLocked(p.ID)
	r.byID[p.ID] = p
	addTo(r.byCategory, p.Category, p.ID)
	addTo(r.byStatus, p.Status, p.ID)
	for _, loc := range p.Locations {
		addTo(r.byFile, loc.File, p.ID)
	}
}

func (r *Repository) unindexLocked(id string) {
	old, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	removeFrom(r.byCategory, old.Category, id)
	removeFrom(r.byStatus, old.Status, id)
	for _, loc := range old.Locations {
		removeFrom(r.byFile, loc.File, id)
	}
}

func addTo[K comparable](idx map[K]map[string]bool, key K, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]bool)
		idx[key] = set
	}
	set[id] = true
}

func removeFrom[K comparable](idx map[K]map[string]bool, key K, id string) {
	if set, ok := idx[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}

// emitUnlocked fires evt after releasing the caller's need for the lock is
// irrelevant to it; handlers run synchronously on the calling goroutine, so
// callers must not hold r.mu when invoking this (event handlers might call
// back into the repository).
func (r *Repository) emitUnlocked(evt Event) {
	r.bus.emit(evt)
}

// Add inserts a new pattern, assigning an id if p.ID is empty. FirstSeen
// and LastSeen default to now if zero.
func (r *Repository) Add(ctx context.Context, p Pattern) (Pattern, error) {
	r.mu.Lock()
	if err := r.requireInitialized(); err != nil {
		r.mu.Unlock()
		return Pattern{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := r.byID[p.ID]; exists {
		r.mu.Unlock()
		return Pattern{}, fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
	}
	now := time.Now().UTC()
	if p.FirstSeen.IsZero() {
		p.FirstSeen = now
	}
	if p.LastSeen.IsZero() {
		p.LastSeen = now
	}
	if p.Status == "" {
		p.Status = StatusDiscovered
	}
	p.recomputeConfidenceLevel()
	stored := p
	r.indexLocked(&stored)
	r.mu.Unlock()

	r.emitUnlocked(Event{Type: EventPatternAdded, Pattern: &stored})
	return stored, nil
}

// AddMany inserts every pattern, emitting one pattern:added event per item
// (Open Question: no batched event is defined, so bulk add mirrors single
// add semantics per item).
func (r *Repository) AddMany(ctx context.Context, ps []Pattern) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ps))
	for _, p := range ps {
		added, err := r.Add(ctx, p)
		if err != nil {
			return out, err
		}
		out = append(out, added)
	}
	return out, nil
}

// Get fetches a single pattern by id.
func (r *Repository) Get(ctx context.Context, id string) (Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.requireInitialized(); err != nil {
		return Pattern{}, err
	}
	p, ok := r.byID[id]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *p, nil
}

// Update applies a partial mutation function to the pattern identified by
// id, recomputing confidence level if confidence changed, and persists the
// change in-memory.
func (r *Repository) Update(ctx context.Context, id string, apply func(*Pattern)) (Pattern, error) {
	r.mu.Lock()
	if err := r.requireInitialized(); err != nil {
		r.mu.Unlock()
		return Pattern{}, err
	}
	existing, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return Pattern{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := *existing
	apply(&updated)
	updated.LastSeen = time.Now().UTC()
	updated.recomputeConfidenceLevel()
	updated.Metadata.Version++
	r.indexLocked(&updated)
	r.mu.Unlock()

	r.emitUnlocked(Event{Type: EventPatternUpdated, Pattern: &updated})
	return updated, nil
}

// Delete removes a pattern. Emits pattern:deleted with only the
// pre-deletion snapshot, since the record no longer exists afterward.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if err := r.requireInitialized(); err != nil {
		r.mu.Unlock()
		return err
	}
	existing, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	snapshot := *existing
	r.unindexLocked(id)
	r.mu.Unlock()

	r.emitUnlocked(Event{Type: EventPatternDeleted, Pattern: &snapshot})
	return nil
}

// statusTransitions is the legal edge set of the lifecycle state machine
// (§4.2); an admin revert from approved or ignored goes back to discovered.
var statusTransitions = map[Status]map[Status]bool{
	StatusDiscovered: {StatusApproved: true, StatusIgnored: true},
	StatusApproved:   {StatusDiscovered: true},
	StatusIgnored:    {StatusDiscovered: true},
}

func transitionAllowed(from, to Status) bool {
	edges, ok := statusTransitions[from]
	return ok && edges[to]
}

// Approve transitions a pattern to approved, stamping approvedAt/approvedBy.
// Approving an already-approved pattern is an illegal transition (Open
// Question decision: approved->approved raises InvalidStatusTransition
// rather than being a silent no-op).
func (r *Repository) Approve(ctx context.Context, id string, by string) (Pattern, error) {
	updated, err := r.transition(id, StatusApproved, func(p *Pattern) {
		now := time.Now().UTC()
		p.ApprovedAt = &now
		p.ApprovedBy = by
	})
	if err != nil {
		return Pattern{}, err
	}
	r.emitUnlocked(Event{Type: EventPatternApproved, Pattern: &updated})
	return updated, nil
}

// Ignore transitions a pattern to ignored, clearing any prior approval.
func (r *Repository) Ignore(ctx context.Context, id string) (Pattern, error) {
	updated, err := r.transition(id, StatusIgnored, func(p *Pattern) {
		p.ApprovedAt = nil
		p.ApprovedBy = ""
	})
	if err != nil {
		return Pattern{}, err
	}
	r.emitUnlocked(Event{Type: EventPatternIgnored, Pattern: &updated})
	return updated, nil
}

// Revert transitions an approved or ignored pattern back to discovered
// (the admin-revert edges of the status machine in §4.2).
func (r *Repository) Revert(ctx context.Context, id string) (Pattern, error) {
	return r.transition(id, StatusDiscovered, func(p *Pattern) {
		p.ApprovedAt = nil
		p.ApprovedBy = ""
	})
}

func (r *Repository) transition(id string, to Status, mutate func(*Pattern)) (Pattern, error) {
	r.mu.Lock()
	if err := r.requireInitialized(); err != nil {
		r.mu.Unlock()
		return Pattern{}, err
	}
	existing, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return Pattern{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !transitionAllowed(existing.Status, to) {
		r.mu.Unlock()
		return Pattern{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, existing.Status, to)
	}
	updated := *existing
	updated.Status = to
	mutate(&updated)
	updated.LastSeen = time.Now().UTC()
	updated.Metadata.Version++
	r.indexLocked(&updated)
	r.mu.Unlock()
	return updated, nil
}

// Query filters, sorts, and paginates the pattern set.
func (r *Repository) Query(ctx context.Context, opts QueryOptions) (QueryResult, error) {
	r.mu.RLock()
	if err := r.requireInitialized(); err != nil {
		r.mu.RUnlock()
		return QueryResult{}, err
	}
	all := make([]Pattern, 0, len(r.byID))
	for _, p := range r.byID {
		all = append(all, *p)
	}
	r.mu.RUnlock()

	matched := make([]Pattern, 0, len(all))
	for _, p := range all {
		if matchesFilter(p, opts.Filter) {
			matched = append(matched, p)
		}
	}
	sortPatterns(matched, opts.Sort)

	total := len(matched)
	page := paginate(matched, opts.Pagination)
	return QueryResult{
		Patterns: page,
		Total:    total,
		HasMore:  opts.Pagination.Offset+len(page) < total,
	}, nil
}

func matchesFilter(p Pattern, f Filter) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, p.ID) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, p.Category) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
		return false
	}
	if f.MinConfidence != nil && p.Confidence < *f.MinConfidence {
		return false
	}
	if f.MaxConfidence != nil && p.Confidence > *f.MaxConfidence {
		return false
	}
	if len(f.ConfidenceLevels) > 0 && !containsConfidenceLevel(f.ConfidenceLevels, p.ConfidenceLevel) {
		return false
	}
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, p.Severity) {
		return false
	}
	if len(f.Files) > 0 && !patternTouchesAnyFile(p, f.Files) {
		return false
	}
	if f.HasOutliers != nil && (len(p.Outliers) > 0) != *f.HasOutliers {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(p.Tags, f.Tags) {
		return false
	}
	if f.Search != "" && !matchesSearch(p, f.Search) {
		return false
	}
	if f.CreatedAfter != nil && p.FirstSeen.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && p.FirstSeen.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, v Category) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsStatus(list []Status, v Status) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsConfidenceLevel(list []ConfidenceLevel, v ConfidenceLevel) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsSeverity(list []Severity, v Severity) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func patternTouchesAnyFile(p Pattern, files []string) bool {
	for _, loc := range p.Locations {
		if containsString(files, loc.File) {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		if containsString(want, t) {
			return true
		}
	}
	return false
}

func matchesSearch(p Pattern, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

func sortPatterns(ps []Pattern, s Sort) {
	if s.Field == "" {
		s.Field = SortByLastSeen
	}
	less := func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch s.Field {
		case SortByName:
			return a.Name < b.Name
		case SortByConfidence:
			return a.Confidence < b.Confidence
		case SortBySeverity:
			return a.Severity.weight() < b.Severity.weight()
		case SortByFirstSeen:
			return a.FirstSeen.Before(b.FirstSeen)
		case SortByLocationCount:
			return a.LocationCount() < b.LocationCount()
		default:
			return a.LastSeen.Before(b.LastSeen)
		}
	}
	if s.Direction == Descending {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(ps, less)
}

func paginate(ps []Pattern, p Pagination) []Pattern {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(ps) {
		return []Pattern{}
	}
	end := len(ps)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return ps[p.Offset:end]
}

// GetByCategory returns every pattern in category.
func (r *Repository) GetByCategory(ctx context.Context, category Category) ([]Pattern, error) {
	return r.byIndex(category, r.byCategory)
}

// GetByStatus returns every pattern with the given status.
func (r *Repository) GetByStatus(ctx context.Context, status Status) ([]Pattern, error) {
	return r.byIndex(status, r.byStatus)
}

// GetByFile returns every pattern with at least one location in file.
func (r *Repository) GetByFile(ctx context.Context, file string) ([]Pattern, error) {
	return r.byIndex(file, r.byFile)
}

func byIndexLookup[K comparable](r *Repository, key K, idx map[K]map[string]bool) []Pattern {
	ids := idx[key]
	out := make([]Pattern, 0, len(ids))
	for id := range ids {
		out = append(out, *r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Repository) byIndex(key any, idxAny any) ([]Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	switch idx := idxAny.(type) {
	case map[Category]map[string]bool:
		return byIndexLookup(r, key.(Category), idx), nil
	case map[Status]map[string]bool:
		return byIndexLookup(r, key.(Status), idx), nil
	case map[string]map[string]bool:
		return byIndexLookup(r, key.(string), idx), nil
	default:
		return nil, fmt.Errorf("pattern repository: unsupported index type")
	}
}

// GetAll returns every pattern, unordered guarantees aside, sorted by id.
func (r *Repository) GetAll(ctx context.Context) ([]Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	out := make([]Pattern, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of patterns matching filter (zero-value Filter
// counts everything).
func (r *Repository) Count(ctx context.Context, filter Filter) (int, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range all {
		if matchesFilter(p, filter) {
			n++
		}
	}
	return n, nil
}

// Exists reports whether id is present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.requireInitialized(); err != nil {
		return false, err
	}
	_, ok := r.byID[id]
	return ok, nil
}

// Clear removes every pattern from memory without touching the store.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireInitialized(); err != nil {
		return err
	}
	r.byID = make(map[string]*Pattern)
	r.byCategory = make(map[Category]map[string]bool)
	r.byStatus = make(map[Status]map[string]bool)
	r.byFile = make(map[string]map[string]bool)
	return nil
}

// GetSummaries returns the lightweight projection of every pattern.
func (r *Repository) GetSummaries(ctx context.Context) ([]Summary, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(all))
	for i, p := range all {
		out[i] = Summary{
			ID:              p.ID,
			Category:        p.Category,
			Name:            p.Name,
			Status:          p.Status,
			Confidence:      p.Confidence,
			ConfidenceLevel: p.ConfidenceLevel,
			LocationCount:   p.LocationCount(),
		}
	}
	return out, nil
}

// SaveAll persists the current in-memory set through store, grouped by
// status directory, transactionally (write-to-temp then rename) at the
// file level.
func (r *Repository) SaveAll(ctx context.Context) error {
	all, err := r.GetAll(ctx)
	if err != nil {
		return err
	}
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveAll(ctx, all); err != nil {
		return fmt.Errorf("pattern repository: saveAll: %w", err)
	}
	r.emitUnlocked(Event{Type: EventPatternsSaved, Count: len(all)})
	return nil
}

// On subscribes h to typ and returns a subscription id usable with Off.
func (r *Repository) On(typ EventType, h Handler) int {
	return r.bus.on(typ, h)
}

// Off removes a subscription previously returned by On.
func (r *Repository) Off(typ EventType, id int) {
	r.bus.off(typ, id)
}
