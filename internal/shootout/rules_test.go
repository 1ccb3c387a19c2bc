package shootout

import "testing"

func TestDirectionsMatch(t *testing.T) {
	cases := []struct {
		shot, save string
		want       bool
	}{
		{"Left", "Left", true},
		{"left high", "LEFT HIGH", true},
		{" Middle ", "middle", true},
		{"Left High", "Left Low", false},
		{"Left", "", false},
		{"", "  ", true},
	}
	for _, c := range cases {
		if got := DirectionsMatch(c.shot, c.save); got != c.want {
			t.Fatalf("DirectionsMatch(%q, %q) = %v, want %v", c.shot, c.save, got, c.want)
		}
	}
}

func TestEvaluateBoundary(t *testing.T) {
	cases := []struct {
		name        string
		round, a, b int
		want        boundaryVerdict
	}{
		{"opening round level", 2, 0, 0, verdictContinue},
		{"one ahead early", 2, 1, 0, verdictContinue},
		{"two ahead after two", 3, 2, 0, verdictContinue},
		{"two ahead after four", 5, 2, 0, verdictEnd},
		{"b two ahead after four", 5, 0, 2, verdictEnd},
		{"reaches win score", 4, 3, 0, verdictEnd},
		{"both at win score level", 5, 3, 3, verdictContinue},
		{"win score but behind", 5, 3, 4, verdictEnd},
		{"regulation over with leader", 6, 2, 1, verdictEnd},
		{"regulation over level", 6, 2, 2, verdictSuddenDeath},
		{"regulation over scoreless", 6, 0, 0, verdictSuddenDeath},
		{"one ahead after four", 5, 2, 1, verdictContinue},
	}
	for _, c := range cases {
		if got := evaluateBoundary(c.round, c.a, c.b); got != c.want {
			t.Fatalf("%s: evaluateBoundary(%d, %d, %d) = %v, want %v", c.name, c.round, c.a, c.b, got, c.want)
		}
	}
}
