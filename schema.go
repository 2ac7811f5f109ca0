package orchestration

// FlowVariant discriminates the Flow implementation carried by a Node,
// mirroring the composition primitives in the Action Kernel grammar.
type FlowVariant string

const (
	FlowVariantSequence   FlowVariant = "sequence"
	FlowVariantConcurrency FlowVariant = "concurrency"
	FlowVariantSelect     FlowVariant = "select"
	FlowVariantIfElse     FlowVariant = "ifelse"
	FlowVariantSwitch     FlowVariant = "switch"
	FlowVariantInvoke     FlowVariant = "invoke"
	FlowVariantTrigger    FlowVariant = "trigger"
	FlowVariantSync       FlowVariant = "sync"
	FlowVariantCatch      FlowVariant = "catch"
	FlowVariantLocalGraph FlowVariant = "localgraph"
	FlowVariantGuard      FlowVariant = "guard"
)

// Flow describes how a composite node relates to its children. Leaf
// actions (Invoke, Trigger, Sync) carry a nil Flow on their Node.
type Flow interface {
	Variant() FlowVariant
}

// SequenceFlow lists the ordered steps of a Sequence.
type SequenceFlow struct {
	Steps []Node `json:"steps"`
}

// Variant implements Flow.
func (SequenceFlow) Variant() FlowVariant { return FlowVariantSequence }

// ConcurrencyFlow lists the independent children of a Concurrency.
type ConcurrencyFlow struct {
	Children []Node `json:"children"`
}

// Variant implements Flow.
func (ConcurrencyFlow) Variant() FlowVariant { return FlowVariantConcurrency }

// SelectFlow lists the competing candidates of a Select.
type SelectFlow struct {
	Candidates []Node `json:"candidates"`
}

// Variant implements Flow.
func (SelectFlow) Variant() FlowVariant { return FlowVariantSelect }

// IfElseFlow describes the two branches of an IfElse.
type IfElseFlow struct {
	Then Node  `json:"then"`
	Else *Node `json:"else,omitempty"`
}

// Variant implements Flow.
func (IfElseFlow) Variant() FlowVariant { return FlowVariantIfElse }

// SwitchFlow maps discriminator keys to their case node, plus an
// optional default.
type SwitchFlow struct {
	Cases   map[string]Node `json:"cases"`
	Default *Node           `json:"default,omitempty"`
}

// Variant implements Flow.
func (SwitchFlow) Variant() FlowVariant { return FlowVariantSwitch }

// CatchFlow describes a guarded child and its recovery handler.
type CatchFlow struct {
	Child       Node   `json:"child"`
	HandlerName Name   `json:"handler_name"`
	Recoverable bool   `json:"recoverable"`
}

// Variant implements Flow.
func (CatchFlow) Variant() FlowVariant { return FlowVariantCatch }

// LocalGraphFlow lists every node of a DAG by name, without duplicating
// edges already captured in Metadata.
type LocalGraphFlow struct {
	Nodes []Node `json:"nodes"`
}

// Variant implements Flow.
func (LocalGraphFlow) Variant() FlowVariant { return FlowVariantLocalGraph }

// GuardFlow describes the single child a Guard protects.
type GuardFlow struct {
	Child Node `json:"child"`
}

// Variant implements Flow.
func (GuardFlow) Variant() FlowVariant { return FlowVariantGuard }

// Node is a serializable snapshot of one action in a composed task tree,
// produced by Describe without executing anything. It exists for
// visualization, validation tooling, and deployment-time introspection.
type Node struct {
	Name     Name           `json:"name"`
	Type     string         `json:"type"`
	Flow     Flow           `json:"flow,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Describable is implemented by actions that can report their own shape
// as a Node tree. Leaf actions return a Node with a nil Flow.
type Describable interface {
	Describe() Node
}

// describeChild produces a child's Node, falling back to a bare leaf
// Node for actions that don't implement Describable.
func describeChild(a Action) Node {
	if d, ok := a.(Describable); ok {
		return d.Describe()
	}
	return Node{Name: a.Name(), Type: "action"}
}

// Schema wraps a composed task tree's root Node and provides traversal
// utilities over it.
type Schema struct {
	Root Node `json:"root"`
}

// NewSchema creates a Schema from a Describable root.
func NewSchema(root Action) Schema {
	return Schema{Root: describeChild(root)}
}

// Walk traverses the schema depth-first, pre-order.
func (s Schema) Walk(fn func(Node)) {
	walkNode(s.Root, fn)
}

func walkNode(node Node, fn func(Node)) {
	fn(node)

	if node.Flow == nil {
		return
	}
	switch f := node.Flow.(type) {
	case SequenceFlow:
		for _, step := range f.Steps {
			walkNode(step, fn)
		}
	case ConcurrencyFlow:
		for _, child := range f.Children {
			walkNode(child, fn)
		}
	case SelectFlow:
		for _, cand := range f.Candidates {
			walkNode(cand, fn)
		}
	case IfElseFlow:
		walkNode(f.Then, fn)
		if f.Else != nil {
			walkNode(*f.Else, fn)
		}
	case SwitchFlow:
		for _, c := range f.Cases {
			walkNode(c, fn)
		}
		if f.Default != nil {
			walkNode(*f.Default, fn)
		}
	case CatchFlow:
		walkNode(f.Child, fn)
	case LocalGraphFlow:
		for _, n := range f.Nodes {
			walkNode(n, fn)
		}
	case GuardFlow:
		walkNode(f.Child, fn)
	}
}

// Find returns the first node matching predicate, or nil.
func (s Schema) Find(predicate func(Node) bool) *Node {
	var result *Node
	s.Walk(func(node Node) {
		if result == nil && predicate(node) {
			n := node
			result = &n
		}
	})
	return result
}

// FindByName returns the first node with the given name, or nil.
func (s Schema) FindByName(name Name) *Node {
	return s.Find(func(n Node) bool { return n.Name == name })
}

// FindByType returns every node of the given type.
func (s Schema) FindByType(nodeType string) []Node {
	var results []Node
	s.Walk(func(node Node) {
		if node.Type == nodeType {
			results = append(results, node)
		}
	})
	return results
}

// Count returns the total number of nodes in the schema.
func (s Schema) Count() int {
	count := 0
	s.Walk(func(Node) { count++ })
	return count
}
