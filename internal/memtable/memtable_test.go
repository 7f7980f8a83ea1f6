package memtable

import "testing"

func TestInsertGetContains(t *testing.T) {
	m := New(3)

	if m.Contains("a") {
		t.Fatalf("empty table should not contain a")
	}

	m.Insert("b", "2")
	m.Insert("a", "1")
	m.Insert("c", "3")

	for _, tc := range []struct{ key, want string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		v, ok := m.Get(tc.key)
		if !ok || v != tc.want {
			t.Fatalf("Get(%q) = (%q, %v), want (%q, true)", tc.key, v, ok, tc.want)
		}
	}
}

func TestInsertOverwritesWithoutGrowingSize(t *testing.T) {
	m := New(3)
	m.Insert("a", "1")
	m.Insert("a", "2")

	if m.Size() != 1 {
		t.Fatalf("want size 1 after overwrite, got %d", m.Size())
	}
	v, ok := m.Get("a")
	if !ok || v != "2" {
		t.Fatalf("want (2, true), got (%q, %v)", v, ok)
	}
}

func TestAtCapacityIsExact(t *testing.T) {
	m := New(2)
	if m.AtCapacity() {
		t.Fatalf("empty table should not be at capacity")
	}
	m.Insert("a", "1")
	if m.AtCapacity() {
		t.Fatalf("table with 1/2 entries should not be at capacity")
	}
	m.Insert("b", "2")
	if !m.AtCapacity() {
		t.Fatalf("table with 2/2 entries should be at capacity")
	}
}

func TestDrainReturnsAscendingAndEmpties(t *testing.T) {
	m := New(5)
	for _, k := range []string{"d", "b", "a", "c"} {
		m.Insert(k, k+"v")
	}

	entries := m.Drain()
	want := []string{"a", "b", "c", "d"}
	if len(entries) != len(want) {
		t.Fatalf("want %d entries, got %d", len(want), len(entries))
	}
	for i, k := range want {
		if entries[i].Key != k || entries[i].Value != k+"v" {
			t.Fatalf("entry %d: want key %q, got %+v", i, k, entries[i])
		}
	}

	if m.Size() != 0 {
		t.Fatalf("want size 0 after drain, got %d", m.Size())
	}
	if m.Contains("a") {
		t.Fatalf("table should be empty after drain")
	}
}

func TestDrainOnEmptyTable(t *testing.T) {
	m := New(5)
	entries := m.Drain()
	if len(entries) != 0 {
		t.Fatalf("want 0 entries, got %d", len(entries))
	}
}
