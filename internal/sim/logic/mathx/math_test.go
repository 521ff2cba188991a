package mathx

import "testing"

func TestDivRound(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{30, 3, 10},
		{14, 4, 4},  // 3.5 -> 4
		{13, 4, 3},  // 3.25 -> 3
		{15, 2, 8},  // 7.5 -> 8
		{-15, 2, -8},
		{-13, 4, -3},
		{0, 3, 0},
		{7, 0, 0},
		{7, -1, 0},
	}
	for _, c := range cases {
		if got := DivRound(c.a, c.b); got != c.want {
			t.Fatalf("DivRound(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(12, -5, 5); got != 5 {
		t.Fatalf("Clamp high: %d", got)
	}
	if got := Clamp(-40, -5, 5); got != -5 {
		t.Fatalf("Clamp low: %d", got)
	}
	if got := Clamp(3, -5, 5); got != 3 {
		t.Fatalf("Clamp mid: %d", got)
	}
}

func TestHash3_Deterministic(t *testing.T) {
	if Hash3(42, 1, 2, 3) != Hash3(42, 1, 2, 3) {
		t.Fatalf("Hash3 not deterministic")
	}
	if Hash3(42, 1, 2, 3) == Hash3(43, 1, 2, 3) {
		t.Fatalf("Hash3 ignores seed")
	}
}
