//go:build linux

package kyron

import "golang.org/x/sys/unix"

// applyAffinity pins the calling OS thread to the given CPU ids via
// sched_setaffinity. Called after runtime.LockOSThread, before the worker's
// first task executes (spec.md §4.2).
func applyAffinity(cpus []uint32) error {
	if len(cpus) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		if int(cpu) >= len(set)*64 {
			return ErrInvalidAffinity
		}
		set.Set(int(cpu))
	}
	return unix.SchedSetaffinity(0, &set)
}
