// Package patternadapter bridges the legacy PostgreSQL pattern table
// (internal/legacystore) onto the unified pattern repository (C1/C2,
// internal/patterns), translating the legacy row shape and status
// vocabulary into the unified Pattern shape and back (§4.8).
package patternadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftco/drift/internal/legacystore"
	"github.com/driftco/drift/internal/patterns"
)

// legacyIDPrefix tags synced patterns so SyncFromLegacy can recognize
// its own previously-imported rows on a later run without a separate
// mapping table.
const legacyIDPrefix = "legacy:"

// legacyStore is the subset of *legacystore.Store the adapter depends
// on, accepted as an interface so tests can substitute an in-memory
// fake rather than standing up a real Postgres instance the way the
// teacher's own repository tests do (internal/db/repositories
// requires a live TEST_DB_HOST).
type legacyStore interface {
	ListAll(ctx context.Context) ([]legacystore.Row, error)
	UpdateStatus(ctx context.Context, patternID string, to legacystore.Status) error
}

// Adapter keeps a legacy store and the unified repository in sync.
type Adapter struct {
	legacy legacyStore
	repo   *patterns.Repository
}

// New binds an Adapter to a legacy store and the unified repository.
func New(legacy *legacystore.Store, repo *patterns.Repository) *Adapter {
	return &Adapter{legacy: legacy, repo: repo}
}

// newWithStore is the test seam: it binds to anything satisfying
// legacyStore, not just *legacystore.Store.
func newWithStore(legacy legacyStore, repo *patterns.Repository) *Adapter {
	return &Adapter{legacy: legacy, repo: repo}
}

// categoryFromLegacy maps the legacy table's free-form category string
// onto the unified closed Category set, falling back to CategoryStyle
// for anything the legacy schema recorded that doesn't correspond to a
// category the unified repository recognizes today.
func categoryFromLegacy(raw string) patterns.Category {
	switch patterns.Category(raw) {
	case patterns.CategoryStructural, patterns.CategorySecurity, patterns.CategoryConfig,
		patterns.CategoryErrors, patterns.CategoryLogging, patterns.CategoryStyle,
		patterns.CategoryDataAccess, patterns.CategoryAPI, patterns.CategoryConcurrency:
		return patterns.Category(raw)
	default:
		return patterns.CategoryStyle
	}
}

// statusFromLegacy maps the legacy three-state vocabulary onto the
// unified Status set.
func statusFromLegacy(raw legacystore.Status) patterns.Status {
	switch raw {
	case legacystore.StatusConfirmed:
		return patterns.StatusApproved
	case legacystore.StatusDismissed:
		return patterns.StatusIgnored
	default:
		return patterns.StatusDiscovered
	}
}

// statusToLegacy is the inverse of statusFromLegacy, used when pushing a
// unified pattern's status change back to the legacy table.
func statusToLegacy(status patterns.Status) legacystore.Status {
	switch status {
	case patterns.StatusApproved:
		return legacystore.StatusConfirmed
	case patterns.StatusIgnored:
		return legacystore.StatusDismissed
	default:
		return legacystore.StatusNew
	}
}

// SyncFromLegacy imports every legacy row the unified repository does
// not already know about, and for rows it does know about, refreshes
// status and confidence. It returns the number of rows created or
// updated.
func (a *Adapter) SyncFromLegacy(ctx context.Context) (int, error) {
	rows, err := a.legacy.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("patternadapter: list legacy rows: %w", err)
	}

	synced := 0
	for _, row := range rows {
		unifiedID := legacyIDPrefix + row.PatternID
		existing, err := a.repo.Get(ctx, unifiedID)
		if errors.Is(err, patterns.ErrNotFound) {
			_, addErr := a.repo.Add(ctx, patterns.Pattern{
				ID:           unifiedID,
				Category:     categoryFromLegacy(row.Category),
				Name:         row.PatternID,
				DetectorID:   "legacy-import",
				DetectorName: "legacy pattern_events import",
				Confidence:   row.Confidence,
				Status:       statusFromLegacy(row.Status),
				FirstSeen:    row.CreatedAt,
				LastSeen:     row.UpdatedAt,
				Tags:         []string{"legacy"},
			})
			if addErr != nil {
				return synced, fmt.Errorf("patternadapter: add %s: %w", unifiedID, addErr)
			}
			synced++
			continue
		}
		if err != nil {
			return synced, fmt.Errorf("patternadapter: get %s: %w", unifiedID, err)
		}

		wantStatus := statusFromLegacy(row.Status)
		if existing.Confidence == row.Confidence && existing.Status == wantStatus {
			continue
		}
		_, updateErr := a.repo.Update(ctx, unifiedID, func(p *patterns.Pattern) {
			p.Confidence = row.Confidence
		})
		if updateErr != nil {
			return synced, fmt.Errorf("patternadapter: update %s: %w", unifiedID, updateErr)
		}
		if err := a.transitionUnified(ctx, unifiedID, existing.Status, wantStatus); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// transitionUnified drives the unified repository's own Approve/Ignore
// operations to reach wantStatus, so the unified state machine's
// invariants (timestamps, approvedBy bookkeeping) stay intact rather
// than being bypassed by a raw field write.
func (a *Adapter) transitionUnified(ctx context.Context, id string, from, want patterns.Status) error {
	if from == want {
		return nil
	}
	// approved and ignored only lead back to discovered, so moving
	// between them reverts first.
	if from != patterns.StatusDiscovered && want != patterns.StatusDiscovered {
		if _, err := a.repo.Revert(ctx, id); err != nil {
			return err
		}
	}
	switch want {
	case patterns.StatusApproved:
		_, err := a.repo.Approve(ctx, id, "legacy-sync")
		return err
	case patterns.StatusIgnored:
		_, err := a.repo.Ignore(ctx, id)
		return err
	case patterns.StatusDiscovered:
		_, err := a.repo.Revert(ctx, id)
		return err
	}
	return nil
}

// PushStatus writes a unified pattern's current status back to its
// legacy row, translating the unified repository's
// ErrInvalidStatusTransition vocabulary from the legacy store's own
// ErrInvalidStateTransition: callers of this package only ever need to
// check for one sentinel regardless of which layer rejected the move.
func (a *Adapter) PushStatus(ctx context.Context, unifiedID, legacyPatternID string) error {
	pattern, err := a.repo.Get(ctx, unifiedID)
	if err != nil {
		return fmt.Errorf("patternadapter: get %s: %w", unifiedID, err)
	}
	to := statusToLegacy(pattern.Status)
	err = a.legacy.UpdateStatus(ctx, legacyPatternID, to)
	if errors.Is(err, legacystore.ErrInvalidStateTransition) {
		return fmt.Errorf("%w: legacy row %s cannot move to %s", patterns.ErrInvalidStatusTransition, legacyPatternID, to)
	}
	if err != nil {
		return fmt.Errorf("patternadapter: push status: %w", err)
	}
	return nil
}
