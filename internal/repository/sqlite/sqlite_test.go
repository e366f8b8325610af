package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"netpanel/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertErrorIs fails the test if err does not match target
func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error matching %v, got %v", target, err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func testSnapshot(uuid, name string) *domain.Snapshot {
	vp := domain.Viewport{X: 1, Y: 2, Zoom: 1.5}
	return &domain.Snapshot{
		UUID:      uuid,
		Name:      name,
		Deletable: true,
		Nodes: []domain.Node{
			domain.NewMachineNode(domain.Machine{UUID: "m1", Group: "desktop", GroupMemberID: 1}, domain.Position{X: 10, Y: 20}),
			domain.NewIntnetNode(1, "i1", domain.Position{X: 5, Y: 5}),
		},
		Intnets: domain.IntnetConfig{
			"i1": {UUID: "i1", Number: 1, Machines: []string{"m1"}},
		},
		Viewport: &vp,
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullToString(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected string
	}{
		{
			name:     "valid string",
			input:    sql.NullString{String: "test", Valid: true},
			expected: "test",
		},
		{
			name:     "invalid string",
			input:    sql.NullString{String: "test", Valid: false},
			expected: "",
		},
		{
			name:     "empty valid string",
			input:    sql.NullString{String: "", Valid: true},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEqual(t, tt.expected, nullToString(tt.input))
		})
	}
}

func TestIntToNull(t *testing.T) {
	assertEqual(t, sql.NullInt64{}, intToNull(0))
	assertEqual(t, sql.NullInt64{Int64: 7, Valid: true}, intToNull(7))
	assertEqual(t, 7, nullToInt(intToNull(7)))
	assertEqual(t, 0, nullToInt(sql.NullInt64{}))
}

func TestMarshalToNull(t *testing.T) {
	t.Run("nil viewport is NULL", func(t *testing.T) {
		var vp *domain.Viewport
		ns, err := marshalToNull(vp)
		assertNoError(t, err)
		assertEqual(t, false, ns.Valid)
	})

	t.Run("empty slice is stored", func(t *testing.T) {
		ns, err := marshalToNull([]string{})
		assertNoError(t, err)
		assertEqual(t, "[]", ns.String)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assertEqual(t, true, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: snapshots.name")))
	assertEqual(t, false, isUniqueViolation(errors.New("disk I/O error")))
}

// ============================================================================
// Panel State Tests
// ============================================================================

func TestPanelState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("empty by default", func(t *testing.T) {
		state, err := repo.GetPanelState(ctx)
		assertNoError(t, err)
		assertEqual(t, 0, len(state.Nodes))
		assertEqual(t, domain.DefaultViewport(), state.Viewport)
	})

	t.Run("save and overwrite", func(t *testing.T) {
		snap := testSnapshot("s", "unused")
		assertNoError(t, repo.SavePanelState(ctx, domain.PanelState{
			Nodes:    snap.Nodes,
			Viewport: domain.Viewport{X: 3, Y: 4, Zoom: 2},
		}))

		state, err := repo.GetPanelState(ctx)
		assertNoError(t, err)
		assertEqual(t, snap.Nodes, state.Nodes)
		assertEqual(t, domain.Viewport{X: 3, Y: 4, Zoom: 2}, state.Viewport)

		assertNoError(t, repo.SavePanelState(ctx, domain.PanelState{}))
		state, err = repo.GetPanelState(ctx)
		assertNoError(t, err)
		assertEqual(t, 0, len(state.Nodes))
		assertEqual(t, 1.0, state.Viewport.Zoom)
	})
}

// ============================================================================
// Intnet Tests
// ============================================================================

func TestReplaceIntnets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := domain.IntnetConfig{
		"a": {UUID: "a", Number: 2, Machines: []string{"m2", "m1"}},
		"b": {UUID: "b", Number: 1, Machines: []string{"m3"}},
	}
	assertNoError(t, repo.ReplaceIntnets(ctx, first))

	got, err := repo.GetIntnets(ctx)
	assertNoError(t, err)
	assertEqual(t, first, got)

	second := domain.IntnetConfig{
		"c": {UUID: "c", Number: 1},
	}
	assertNoError(t, repo.ReplaceIntnets(ctx, second))

	got, err = repo.GetIntnets(ctx)
	assertNoError(t, err)
	assertEqual(t, 1, len(got))
	assertEqual(t, []string{}, got["c"].Machines)
}

// ============================================================================
// Snapshot Tests
// ============================================================================

func TestSnapshotCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := testSnapshot("s1", "lab-one")
	snap.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assertNoError(t, repo.CreateSnapshot(ctx, snap))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetSnapshot(ctx, "s1")
		assertNoError(t, err)
		assertEqual(t, "lab-one", got.Name)
		assertEqual(t, true, got.Deletable)
		assertEqual(t, snap.Nodes, got.Nodes)
		assertEqual(t, snap.Intnets, got.Intnets)
		assertEqual(t, *snap.Viewport, *got.Viewport)
		if !got.CreatedAt.Equal(snap.CreatedAt) {
			t.Fatalf("expected created_at %v, got %v", snap.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetSnapshot(ctx, "nope")
		assertErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		err := repo.CreateSnapshot(ctx, testSnapshot("s2", "lab-one"))
		assertErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("nil viewport", func(t *testing.T) {
		s := testSnapshot("s3", "no-viewport")
		s.Viewport = nil
		assertNoError(t, repo.CreateSnapshot(ctx, s))
		got, err := repo.GetSnapshot(ctx, "s3")
		assertNoError(t, err)
		if got.Viewport != nil {
			t.Fatalf("expected nil viewport, got %v", got.Viewport)
		}
		if got.CreatedAt.IsZero() {
			t.Fatal("expected created_at to be set")
		}
	})

	t.Run("list", func(t *testing.T) {
		all, err := repo.ListSnapshots(ctx)
		assertNoError(t, err)
		assertEqual(t, 2, len(all))
		assertEqual(t, "s1", all[0].UUID)
	})

	t.Run("rename", func(t *testing.T) {
		assertNoError(t, repo.RenameSnapshot(ctx, "s1", "Lab one"))
		got, err := repo.GetSnapshot(ctx, "s1")
		assertNoError(t, err)
		assertEqual(t, "Lab one", got.Name)

		assertErrorIs(t, repo.RenameSnapshot(ctx, "s1", "no-viewport"), domain.ErrConflict)
		assertErrorIs(t, repo.RenameSnapshot(ctx, "nope", "x"), domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		assertNoError(t, repo.DeleteSnapshot(ctx, "s1"))
		assertErrorIs(t, repo.DeleteSnapshot(ctx, "s1"), domain.ErrNotFound)

		all, err := repo.ListSnapshots(ctx)
		assertNoError(t, err)
		assertEqual(t, 1, len(all))
	})
}

// ============================================================================
// Machine Tests
// ============================================================================

func TestMachines(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	machines := []domain.Machine{
		{UUID: "s1", Group: "server", GroupMemberID: 1, Port: 1501, Domain: "server1.example.org"},
		{UUID: "d2", Group: "desktop", GroupMemberID: 2, State: domain.MachineStateActive},
		{UUID: "d1", Group: "desktop", GroupMemberID: 1},
	}
	assertNoError(t, repo.ReplaceMachines(ctx, machines))

	t.Run("list is ordered by group", func(t *testing.T) {
		got, err := repo.ListMachines(ctx)
		assertNoError(t, err)
		assertEqual(t, 3, len(got))
		assertEqual(t, "d1", got[0].UUID)
		assertEqual(t, "d2", got[1].UUID)
		assertEqual(t, machines[0], got[2])
	})

	t.Run("upsert updates", func(t *testing.T) {
		m := domain.Machine{UUID: "d1", Group: "desktop", GroupMemberID: 1, State: domain.MachineStateOffline}
		assertNoError(t, repo.UpsertMachine(ctx, &m))
		got, err := repo.GetMachine(ctx, "d1")
		assertNoError(t, err)
		assertEqual(t, domain.MachineStateOffline, got.State)
	})

	t.Run("delete", func(t *testing.T) {
		assertNoError(t, repo.DeleteMachine(ctx, "s1"))
		_, err := repo.GetMachine(ctx, "s1")
		assertErrorIs(t, err, domain.ErrNotFound)
		assertErrorIs(t, repo.DeleteMachine(ctx, "s1"), domain.ErrNotFound)
	})

	t.Run("replace clears", func(t *testing.T) {
		assertNoError(t, repo.ReplaceMachines(ctx, nil))
		got, err := repo.ListMachines(ctx)
		assertNoError(t, err)
		assertEqual(t, 0, len(got))
	})
}
