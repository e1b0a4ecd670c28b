package checksum

import "testing"

func TestSumStable(t *testing.T) {
	a := Sum([]byte("[]"))
	if a != Sum([]byte("[]")) {
		t.Fatal("sum should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	if a == Sum([]byte("[ ]")) {
		t.Error("different input should give a different sum")
	}
}

func TestMatches(t *testing.T) {
	data := []byte(`[{"id":"x"}]`)
	if !Matches(data, Sum(data)) {
		t.Error("expected match")
	}
	if Matches(data, "") {
		t.Error("empty sum must not match")
	}
	if Matches([]byte("other"), Sum(data)) {
		t.Error("unexpected match")
	}
}
