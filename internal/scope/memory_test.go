// internal/scope/memory_test.go
//
// Unit-tests for MemoryStore and Handle.
//
// Run: go test ./internal/scope -v

package scope

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
)

var acme = Selection{SchoolID: "S1", SchoolName: "Acme", SubjectID: "M1", SubjectName: "Math"}

func TestMemoryStore_UnknownSessionLoadsZero(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	st, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, st.Selection)
	assert.Equal(t, account.RoleUnknown, st.Role)
	assert.Equal(t, "", st.SubjectID())
}

func TestMemoryStore_SelectionOverwriteAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	require.NoError(t, s.PutAuth(ctx, "a", account.RoleStudent, "tok"))
	require.NoError(t, s.PutSelection(ctx, "a", acme))

	other := Selection{SchoolID: "S2", SubjectID: "P1"}
	require.NoError(t, s.PutSelection(ctx, "a", other))

	st, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, st.Selection)
	assert.Equal(t, other, *st.Selection, "overwrite replaces the whole record")
	assert.Equal(t, "tok", st.Token)

	require.NoError(t, s.ClearSelection(ctx, "a"))
	st, _ = s.Load(ctx, "a")
	assert.Nil(t, st.Selection)
	assert.Equal(t, account.RoleStudent, st.Role, "clear keeps auth")
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	require.NoError(t, s.PutSelection(ctx, "a", acme))
	st, _ := s.Load(ctx, "a")
	st.Selection.SubjectID = "mutated"

	again, _ := s.Load(ctx, "a")
	assert.Equal(t, "M1", again.Selection.SubjectID)
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	require.NoError(t, s.PutSelection(ctx, "a", acme))
	st, _ := s.Load(ctx, "b")
	assert.Nil(t, st.Selection)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_EvictIdle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	s.idleTTL = 30 * time.Minute

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	require.NoError(t, s.PutSelection(ctx, "old", acme))
	now = base.Add(20 * time.Minute)
	require.NoError(t, s.PutSelection(ctx, "fresh", acme))

	now = base.Add(31 * time.Minute)
	assert.Equal(t, 1, s.evictIdle())

	st, _ := s.Load(ctx, "old")
	assert.Nil(t, st.Selection)
	st, _ = s.Load(ctx, "fresh")
	assert.NotNil(t, st.Selection)
}

func TestMemoryStore_ReadRefreshesIdleClock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	s.idleTTL = 30 * time.Minute

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	require.NoError(t, s.PutSelection(ctx, "a", acme))
	now = base.Add(25 * time.Minute)
	_, _ = s.Load(ctx, "a")

	now = base.Add(40 * time.Minute)
	assert.Equal(t, 0, s.evictIdle())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.PutSelection(ctx, "a", acme)
			} else {
				_, _ = s.Load(ctx, "a")
			}
		}(i)
	}
	wg.Wait()

	st, _ := s.Load(ctx, "a")
	require.NotNil(t, st.Selection)
	assert.Equal(t, acme, *st.Selection)
}

func TestHandle_WritesAreVisibleInRequest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	h, err := NewHandle(ctx, s, "a")
	require.NoError(t, err)
	_, ok := h.GetContext()
	assert.False(t, ok)

	require.NoError(t, h.SetAuth(ctx, account.RoleAdministrator, "tok"))
	require.NoError(t, h.SetContext(ctx, acme))

	sel, ok := h.GetContext()
	require.True(t, ok)
	assert.Equal(t, acme, sel)
	assert.Equal(t, account.RoleAdministrator, h.Role())
	assert.Equal(t, "tok", h.Token())

	// A fresh handle sees the persisted state.
	h2, err := NewHandle(ctx, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "M1", h2.Snapshot().SubjectID())

	require.NoError(t, h.Destroy(ctx))
	_, ok = h.GetContext()
	assert.False(t, ok)
	assert.Equal(t, "", h.Token())
}

func TestHandle_RotateMovesState(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	require.NoError(t, s.PutAuth(ctx, "old", account.RoleStudent, "tok"))
	require.NoError(t, s.PutSelection(ctx, "old", acme))
	h, err := NewHandle(ctx, s, "old")
	require.NoError(t, err)

	require.NoError(t, h.Rotate(ctx, "new"))
	assert.Equal(t, "new", h.SessionID())
	assert.Equal(t, 1, s.Len())

	old, err := s.Load(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, old.Token)

	moved, err := s.Load(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "tok", moved.Token)
	assert.Equal(t, "M1", moved.SubjectID())

	require.NoError(t, h.ClearContext(ctx))
	moved, _ = s.Load(ctx, "new")
	assert.Nil(t, moved.Selection, "writes follow the new id")
}

func TestMemoryStore_RenameMissingIsNoop(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	require.NoError(t, s.Rename(context.Background(), "ghost", "new"))
	assert.Equal(t, 0, s.Len())
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	h := &Handle{sid: "x"}
	ctx := WithHandle(context.Background(), h)
	assert.Same(t, h, FromContext(ctx))
}
