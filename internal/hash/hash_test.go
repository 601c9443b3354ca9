package hash

import "testing"

func TestSignature_Deterministic(t *testing.T) {
	a := Signature("analysis", "t1", "t2", "t1->t2")
	b := Signature("analysis", "t1", "t2", "t1->t2")

	if a != b {
		t.Errorf("identical inputs produced different signatures: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(a))
	}
}

func TestSignature_SensitiveToParts(t *testing.T) {
	base := Signature("analysis", "t1", "t2")

	tests := []struct {
		name string
		got  string
	}{
		{"different kind", Signature("optimization", "t1", "t2")},
		{"different part", Signature("analysis", "t1", "t3")},
		{"extra part", Signature("analysis", "t1", "t2", "t3")},
		{"reordered parts", Signature("analysis", "t2", "t1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == base {
				t.Errorf("signature collision with base for %s", tt.name)
			}
		})
	}
}

func TestSignature_SeparatorNotGameable(t *testing.T) {
	// "ab" + "c" must differ from "a" + "bc".
	if Signature("k", "ab", "c") == Signature("k", "a", "bc") {
		t.Error("part boundaries are ambiguous")
	}
}

func TestSumHex(t *testing.T) {
	if SumHex([]byte("x")) == SumHex([]byte("y")) {
		t.Error("distinct payloads hashed identically")
	}
	if got := len(SumHex(nil)); got != 64 {
		t.Errorf("hex digest length = %d, want 64", got)
	}
}
