package entitystore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type widget struct{ Name string }
type gadget struct{ Count int }

func TestInsertGetRoundTrip(t *testing.T) {
	s := New()
	uid := Add(s, widget{Name: "a"})
	got, ok := Get[widget](s, uid)
	if !ok {
		t.Fatalf("Get ok = false, want true")
	}
	if diff := cmp.Diff(&widget{Name: "a"}, got); diff != "" {
		t.Fatalf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveRoundTrip(t *testing.T) {
	s := New()
	uid := Add(s, widget{Name: "a"})
	removed, ok := Remove[widget](s, uid)
	if !ok {
		t.Fatalf("Remove ok = false, want true")
	}
	if diff := cmp.Diff(widget{Name: "a"}, removed); diff != "" {
		t.Fatalf("Remove mismatch (-want +got):\n%s", diff)
	}
	if _, ok := Get[widget](s, uid); ok {
		t.Errorf("Get after Remove still found a value")
	}
}

func TestInsertReplacesAndReturnsPrior(t *testing.T) {
	s := New()
	uid := UID(42)
	if _, had := Insert(s, uid, widget{Name: "first"}); had {
		t.Fatalf("Insert on empty key reported a prior value")
	}
	prior, had := Insert(s, uid, widget{Name: "second"})
	if !had {
		t.Fatalf("Insert replace had = false, want true")
	}
	if diff := cmp.Diff(widget{Name: "first"}, prior); diff != "" {
		t.Fatalf("Insert prior mismatch (-want +got):\n%s", diff)
	}
	got, _ := Get[widget](s, uid)
	if diff := cmp.Diff(&widget{Name: "second"}, got); diff != "" {
		t.Errorf("Get after replace mismatch (-want +got):\n%s", diff)
	}
}

func TestSeparateTypeKeySpaces(t *testing.T) {
	s := New()
	uid := UID(7)
	Insert(s, uid, widget{Name: "w"})
	if _, ok := Get[gadget](s, uid); ok {
		t.Errorf("Get[gadget] found a value inserted as widget under the same uid")
	}
}

func TestGetMissingType(t *testing.T) {
	s := New()
	if _, ok := Get[widget](s, UID(1)); ok {
		t.Errorf("Get on empty store reported found")
	}
}

func TestAddReturnsDistinctUIDs(t *testing.T) {
	s := New()
	seen := map[UID]bool{}
	for i := 0; i < 100; i++ {
		uid := Add(s, gadget{Count: i})
		if seen[uid] {
			t.Fatalf("Add produced duplicate uid %v", uid)
		}
		seen[uid] = true
	}
}

func TestGetMutAliasesStoreMemory(t *testing.T) {
	s := New()
	uid := Add(s, gadget{Count: 1})
	g, _ := GetMut[gadget](s, uid)
	g.Count = 99
	got, _ := Get[gadget](s, uid)
	if diff := cmp.Diff(&gadget{Count: 99}, got); diff != "" {
		t.Errorf("mutation through GetMut not visible via Get (-want +got):\n%s", diff)
	}
}
