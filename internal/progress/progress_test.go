package progress

import "testing"

func TestKey(t *testing.T) {
	if got := Key(1337); got != "task:progress:1337" {
		t.Fatalf("key = %q", got)
	}
}

func TestEstimateRemainingNeverNegative(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		average   float64
		want      float64
	}{
		{"mid run", 10, 4, 2.5, 15},
		{"all done", 10, 10, 2.5, 0},
		{"over-counted", 10, 12, 2.5, 0},
		{"no average yet", 10, 0, 0, 0},
		{"negative average", 10, 2, -5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateRemaining(tc.total, tc.completed, tc.average)
			if got != tc.want {
				t.Fatalf("EstimateRemaining(%d, %d, %v) = %v, want %v", tc.total, tc.completed, tc.average, got, tc.want)
			}
			if got < 0 {
				t.Fatal("estimate must never be negative")
			}
		})
	}
}

func TestEstimateRemainingMonotone(t *testing.T) {
	const total = 8
	const average = 3.0
	previous := EstimateRemaining(total, 0, average)
	for completed := 1; completed <= total; completed++ {
		estimate := EstimateRemaining(total, completed, average)
		if estimate > previous {
			t.Fatalf("estimate increased at completed=%d: %v > %v", completed, estimate, previous)
		}
		previous = estimate
	}
	if previous != 0 {
		t.Fatalf("estimate at completion = %v, want 0", previous)
	}
}
