package memory

import (
	"testing"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
)

func TestFixtureStore_ReplaceSwapsWholeList(t *testing.T) {
	t.Parallel()

	store := NewFixtureStore()
	if store.Len() != 0 || store.List() == nil {
		t.Fatalf("expected empty non-nil list on a fresh store")
	}

	store.Replace([]match.Record{{FixtureID: 1}, {FixtureID: 2}})
	store.Replace([]match.Record{{FixtureID: 3}})

	items := store.List()
	if len(items) != 1 || items[0].FixtureID != 3 {
		t.Fatalf("unexpected items after replace: %+v", items)
	}
	if _, ok := store.Get(1); ok {
		t.Fatalf("expected fixture 1 to be gone")
	}
	if got, ok := store.Get(3); !ok || got.FixtureID != 3 {
		t.Fatalf("expected fixture 3, got=%+v ok=%v", got, ok)
	}
}

func TestFixtureStore_ListReturnsCopy(t *testing.T) {
	t.Parallel()

	input := []match.Record{{FixtureID: 1, Date: "2024-01-01"}}
	store := NewFixtureStore()
	store.Replace(input)
	input[0].Date = "mutated"

	items := store.List()
	items[0].Date = "mutated-again"

	got, _ := store.Get(1)
	if got.Date != "2024-01-01" {
		t.Fatalf("store leaked caller mutations: %q", got.Date)
	}
}
