// Package subobjects reconciles a line's small attached collections (alerts,
// reporting codes) against their remote stores. Given the desired objects
// and the ids currently referenced by the stored line, it computes and
// executes the minimal set of create, update and delete operations, keyed by
// remote identity and independent of ordering in either input.
package subobjects

import (
	"context"
	"sync"

	"github.com/openacq/orderline/pkg/errors"
	"github.com/openacq/orderline/pkg/logging"
)

// Kind identifies a sub-object collection.
type Kind string

// String returns the string representation of a Kind.
func (k Kind) String() string {
	return string(k)
}

// Sub-object collection kinds.
const (
	KindAlerts         Kind = "alerts"
	KindReportingCodes Kind = "reportingCodes"
)

// Object is one desired sub-object: its remote identity (empty before
// creation) and its opaque content.
type Object struct {
	ID   string
	Body any
}

// Store is the remote collection the sub-objects live in.
type Store interface {
	// Create stores a new object and returns its assigned id.
	Create(ctx context.Context, kind Kind, body any) (string, error)

	// Update replaces the object stored under id.
	Update(ctx context.Context, kind Kind, id string, body any) error

	// Delete removes the object stored under id.
	Delete(ctx context.Context, kind Kind, id string) error
}

// Result holds the outcome of one reconciliation pass. IDs is the resolved
// reference list for the line summary; order is not significant. Failures
// records every operation that could not be completed. They are collected,
// not raised, so the line update can report a partial application.
type Result struct {
	IDs      []string
	Failures []errors.Failure
}

// Reconciler computes and executes sub-object deltas against a Store.
type Reconciler struct {
	store Store
}

// New creates a Reconciler backed by the given store.
func New(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// outcome is the result of a single sub-object operation.
type outcome struct {
	id      string // resolved id to keep in the reference list, empty to drop
	failure *errors.Failure
}

// Reconcile diffs the desired objects against the stored id list and runs
// the resulting operations concurrently:
//
//   - desired objects whose id matches a stored id are updated in place
//   - desired objects with no stored match are created; the resolved id
//     comes from the remote response
//   - stored ids with no desired match are deleted; when a delete fails the
//     id is retained so a future pass still attempts cleanup
//
// Sibling operations complete in any order and a failure of one never
// cancels the others.
func (r *Reconciler) Reconcile(ctx context.Context, kind Kind, desired []Object, storedIDs []string) Result {
	stored := make(map[string]bool, len(storedIDs))
	for _, id := range storedIDs {
		stored[id] = true
	}

	var wg sync.WaitGroup
	outcomes := make(chan outcome, len(desired)+len(storedIDs))

	for _, obj := range desired {
		matched := obj.ID != "" && stored[obj.ID]
		if matched {
			delete(stored, obj.ID)
		}

		wg.Add(1)
		go func(obj Object, matched bool) {
			defer wg.Done()
			if matched {
				outcomes <- r.update(ctx, kind, obj)
				return
			}
			outcomes <- r.create(ctx, kind, obj)
		}(obj, matched)
	}

	// The remaining stored ids have no desired counterpart.
	for id := range stored {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcomes <- r.remove(ctx, kind, id)
		}(id)
	}

	wg.Wait()
	close(outcomes)

	var result Result
	for o := range outcomes {
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
		if o.id != "" {
			result.IDs = append(result.IDs, o.id)
		}
	}
	return result
}

// update replaces an existing object. The id is kept in the reference list
// whether or not the write succeeded; the object exists either way.
func (r *Reconciler) update(ctx context.Context, kind Kind, obj Object) outcome {
	if err := r.store.Update(ctx, kind, obj.ID, obj.Body); err != nil {
		return outcome{
			id:      obj.ID,
			failure: &errors.Failure{Kind: kind.String(), ID: obj.ID, Err: err},
		}
	}
	return outcome{id: obj.ID}
}

// create stores a new object and resolves its id from the remote response.
func (r *Reconciler) create(ctx context.Context, kind Kind, obj Object) outcome {
	id, err := r.store.Create(ctx, kind, obj.Body)
	if err != nil {
		return outcome{failure: &errors.Failure{Kind: kind.String(), ID: obj.ID, Err: err}}
	}
	logging.Ctx(ctx).Debug().
		Str("kind", kind.String()).
		Str("id", id).
		Msg("Sub-object created")
	return outcome{id: id}
}

// remove deletes an orphaned object. On failure the id is retained in the
// reference list so the object is not silently orphaned from the line.
func (r *Reconciler) remove(ctx context.Context, kind Kind, id string) outcome {
	if err := r.store.Delete(ctx, kind, id); err != nil {
		return outcome{
			id:      id,
			failure: &errors.Failure{Kind: kind.String(), ID: id, Err: err},
		}
	}
	return outcome{}
}
