package result

import "testing"

func TestNew_Rounds(t *testing.T) {
	r := New("evt-1", 0.83456, Details{Sim: 0.999, Label: 0.333333, Recency: 0.005})

	if r.ID() != "evt-1" {
		t.Errorf("ID = %q", r.ID())
	}
	if r.Score() != 0.83 {
		t.Errorf("Score = %v, want 0.83", r.Score())
	}
	d := r.Details()
	if d.Sim != 1 || d.Label != 0.33 || d.Recency != 0.01 {
		t.Errorf("Details = %+v, want {1 0.33 0.01}", d)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{0.125, 0.12},
		{0.375, 0.38},
		{0.625, 0.62},
		{0.124, 0.12},
		{0.126, 0.13},
		{2.675, 2.67},
		{1.005, 1},
		{1.999, 2},
		{-0.126, -0.13},
	}
	for _, tc := range tests {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
