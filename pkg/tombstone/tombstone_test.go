package tombstone

import "testing"

func TestValueLength(t *testing.T) {
	v := Value()
	if len(v) != length {
		t.Fatalf("expected sentinel of length %d, got %d (%q)", length, len(v), v)
	}
}

func TestValueStable(t *testing.T) {
	first := Value()
	second := Value()
	if first != second {
		t.Fatalf("expected the same sentinel across calls within a process, got %q and %q", first, second)
	}
}

func TestValueAlphanumeric(t *testing.T) {
	for _, r := range Value() {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit {
			t.Fatalf("sentinel contains non-alphanumeric rune %q", r)
		}
	}
}
