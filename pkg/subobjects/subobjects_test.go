package subobjects

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]any
	nextID  int

	failCreate bool
	failUpdate map[string]bool
	failDelete map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:    make(map[string]any),
		failUpdate: make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

func (s *fakeStore) seed(id string, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = body
}

func (s *fakeStore) Create(_ context.Context, _ Kind, body any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return "", fmt.Errorf("create rejected")
	}
	s.nextID++
	id := fmt.Sprintf("id-%d", s.nextID)
	s.objects[id] = body
	return id, nil
}

func (s *fakeStore) Update(_ context.Context, _ Kind, id string, body any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate[id] {
		return fmt.Errorf("update rejected")
	}
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("object %s not found", id)
	}
	s.objects[id] = body
	return nil
}

func (s *fakeStore) Delete(_ context.Context, _ Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[id] {
		return fmt.Errorf("delete rejected")
	}
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("object %s not found", id)
	}
	delete(s.objects, id)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestReconcileCreatesUnmatched(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	desired := []Object{
		{Body: "first"},
		{Body: "second"},
	}
	result := r.Reconcile(context.Background(), KindAlerts, desired, nil)

	assert.Empty(t, result.Failures)
	assert.Len(t, result.IDs, 2)
	assert.Equal(t, 2, store.count())
}

func TestReconcileUpdatesMatched(t *testing.T) {
	store := newFakeStore()
	store.seed("a1", "old")
	r := New(store)

	desired := []Object{{ID: "a1", Body: "new"}}
	result := r.Reconcile(context.Background(), KindAlerts, desired, []string{"a1"})

	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"a1"}, result.IDs)
	assert.Equal(t, "new", store.objects["a1"])
}

func TestReconcileDeletesOrphaned(t *testing.T) {
	store := newFakeStore()
	store.seed("a1", "keep")
	store.seed("a2", "drop")
	r := New(store)

	desired := []Object{{ID: "a1", Body: "keep"}}
	result := r.Reconcile(context.Background(), KindAlerts, desired, []string{"a1", "a2"})

	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"a1"}, result.IDs)
	assert.Equal(t, 1, store.count())
}

// A desired object with an id unknown to storage is treated as a create, not
// an update; the stale id is replaced by the newly assigned one.
func TestReconcileUnknownIDCreates(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	desired := []Object{{ID: "gone", Body: "resurrected"}}
	result := r.Reconcile(context.Background(), KindAlerts, desired, nil)

	require.Len(t, result.IDs, 1)
	assert.NotEqual(t, "gone", result.IDs[0])
	assert.Empty(t, result.Failures)
}

func TestReconcileDeleteFailureRetainsID(t *testing.T) {
	store := newFakeStore()
	store.seed("a1", "stuck")
	store.failDelete["a1"] = true
	r := New(store)

	result := r.Reconcile(context.Background(), KindAlerts, nil, []string{"a1"})

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "a1", result.Failures[0].ID)
	// The id stays referenced so a later pass can retry the cleanup.
	assert.Equal(t, []string{"a1"}, result.IDs)
}

func TestReconcileUpdateFailureRetainsID(t *testing.T) {
	store := newFakeStore()
	store.seed("a1", "old")
	store.failUpdate["a1"] = true
	r := New(store)

	result := r.Reconcile(context.Background(), KindAlerts, []Object{{ID: "a1", Body: "new"}}, []string{"a1"})

	require.Len(t, result.Failures, 1)
	assert.Equal(t, []string{"a1"}, result.IDs)
	assert.Equal(t, "old", store.objects["a1"])
}

func TestReconcileCreateFailureOmitsID(t *testing.T) {
	store := newFakeStore()
	store.failCreate = true
	r := New(store)

	result := r.Reconcile(context.Background(), KindAlerts, []Object{{Body: "x"}}, nil)

	require.Len(t, result.Failures, 1)
	assert.Empty(t, result.IDs)
}

// One failing sibling never cancels the others.
func TestReconcileSiblingFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.seed("a1", "v")
	store.seed("a2", "v")
	store.failDelete["a1"] = true
	r := New(store)

	result := r.Reconcile(context.Background(), KindAlerts, []Object{{Body: "new"}}, []string{"a1", "a2"})

	require.Len(t, result.Failures, 1)
	// a2 deleted, the new object created, a1 retained.
	assert.Len(t, result.IDs, 2)
	assert.Equal(t, 2, store.count())
}

// Reconciling the same desired state twice is a no-op the second time.
func TestReconcileIdempotent(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	desired := []Object{{Body: "only"}}
	first := r.Reconcile(context.Background(), KindReportingCodes, desired, nil)
	require.Empty(t, first.Failures)
	require.Len(t, first.IDs, 1)

	// Feed the resolved state back in.
	desired[0].ID = first.IDs[0]
	second := r.Reconcile(context.Background(), KindReportingCodes, desired, first.IDs)

	assert.Empty(t, second.Failures)
	assert.Equal(t, sorted(first.IDs), sorted(second.IDs))
	assert.Equal(t, 1, store.count())
}
