package stats

import (
	"testing"
)

// VerifyCounters fails t unless every named instrument in the receiver's
// registry holds the expected value. A negative expectation asserts the
// instrument is absent.
func VerifyCounters(t *testing.T, stat StatsReceiver, expected map[string]int64) {
	t.Helper()
	reg, ok := stat.(*defaultStatsReceiver)
	if !ok {
		t.Fatalf("stats receiver %T has no registry to verify", stat)
	}
	fr, ok := reg.registry.(*finagleStatsRegistry)
	if !ok {
		t.Fatalf("registry %T is not a finagle registry", reg.registry)
	}
	got := fr.MarshalAll()
	for name, want := range expected {
		v, found := got[name]
		if want < 0 {
			if found {
				t.Errorf("%s: found stat entry when there should not be one", name)
			}
			continue
		}
		if !found {
			t.Errorf("%s: missing, expected %d", name, want)
			continue
		}
		if n, _ := v.(int64); n != want {
			t.Errorf("%s: got %v, expected %d", name, v, want)
		}
	}
}
