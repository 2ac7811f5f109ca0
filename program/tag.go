// Package program implements the design/deployment split of spec.md §8:
// a Database registers named actions and events once at design time and
// hands back stable Tags; a Program binds those tags to a concrete kyron
// Runtime at deployment time and runs the bound root.
package program

import "hash/fnv"

// Tag is a stable, deterministic handle for a name registered in a
// Database. Two Tags compare equal iff their source names were equal,
// so Tags can cross serialization boundaries (a deployment config file)
// without carrying the name itself.
type Tag uint64

// NewTag derives a Tag from name via FNV-1a. Deterministic so the same
// design, recompiled, yields the same Tags a deployment config can
// reference.
func NewTag(name string) Tag {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return Tag(h.Sum64())
}

// OrchestrationTag pairs a Tag with the debug name it was derived from,
// the handle a DesignConfigurator hands back on registration and a
// Program consumes to name its root (spec.md §8: "programs address
// actions and events by tag, never by name, once deployed").
type OrchestrationTag struct {
	Tag  Tag
	Name string
}

// NewOrchestrationTag derives an OrchestrationTag directly from name.
func NewOrchestrationTag(name string) OrchestrationTag {
	return OrchestrationTag{Tag: NewTag(name), Name: name}
}

func (t OrchestrationTag) String() string { return t.Name }
