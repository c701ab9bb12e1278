package gazetteer

import (
	"math"
	"testing"
)

func TestManhattanDegrees(t *testing.T) {
	t.Parallel()

	got := ManhattanDegrees(48.8566, 2.3522, 48.8570, 2.3525)
	want := 0.0007
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ManhattanDegrees = %f, want %f", got, want)
	}
}

func TestHaversineKm(t *testing.T) {
	t.Parallel()

	// Paris to Berlin, roughly 878 km.
	got := HaversineKm(48.8566, 2.3522, 52.52, 13.405)
	if got < 850 || got > 900 {
		t.Fatalf("HaversineKm Paris-Berlin = %f, want ~878", got)
	}

	if d := HaversineKm(10, 20, 10, 20); d != 0 {
		t.Fatalf("identical points must have zero distance, got %f", d)
	}
}
