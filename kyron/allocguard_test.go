package kyron

import "testing"

func TestAssertNoAllocPassesOnAllocationFreeWork(t *testing.T) {
	sum := 0
	AssertNoAlloc(t, "increment", 0, func() { sum++ })
	_ = sum
}

// TestAllocsPerRunDetectsAnAllocatingFunction confirms the primitive
// AssertNoAlloc is built on (testing.AllocsPerRun) actually reports a
// nonzero count for code that allocates every call, the property that
// makes AssertNoAlloc a meaningful regression guard rather than a
// no-op.
func TestAllocsPerRunDetectsAnAllocatingFunction(t *testing.T) {
	var sink []int
	n := testing.AllocsPerRun(100, func() {
		sink = append(make([]int, 0, 8), 1, 2, 3)
	})
	if n == 0 {
		t.Fatal("expected an allocating function to report nonzero AllocsPerRun")
	}
	_ = sink
}
