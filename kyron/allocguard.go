package kyron

import "testing"

// AssertNoAlloc is the debug allocator guard spec.md §5 requires
// ("violations must be detectable in debug builds via an allocator
// guard"): it re-runs fn via testing.AllocsPerRun and reports the mean
// number of heap allocations observed. Callers on a genuinely
// steady-state Execute path (Concurrency, Select, LocalGraph, pinned
// Invoke) should see this come back at or near zero once warmed up;
// anything above maxAllocs fails t.
//
// fn must already be warmed up by the caller (first call through any of
// these actions legitimately allocates their ReusableFuturePool and
// cached graph state) — AssertNoAlloc only measures the steady state.
func AssertNoAlloc(t testing.TB, label string, maxAllocs float64, fn func()) {
	t.Helper()
	n := testing.AllocsPerRun(100, fn)
	if n > maxAllocs {
		t.Errorf("%s: steady-state allocations = %.2f, want <= %.2f", label, n, maxAllocs)
	}
}
