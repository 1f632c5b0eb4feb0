package graph

// NodeType distinguishes package nodes from entry point nodes.
type NodeType string

const (
	TypePackage    NodeType = "package"
	TypeEntryPoint NodeType = "entry-point"
)

// NodeState is the processing state of a node.
type NodeState string

const (
	StateQueued     NodeState = "queued"
	StateInProgress NodeState = "in-progress"
	StateDone       NodeState = "done"
	StateError      NodeState = "error"
)

// Node is a single vertex of the build graph.
type Node struct {
	ID    string
	Type  NodeType
	State NodeState
	Data  Bag
}

// NewNode creates a queued node with an empty data bag.
func NewNode(id string, typ NodeType) *Node {
	return &Node{ID: id, Type: typ, State: StateQueued, Data: Bag{}}
}

// Clone returns a copy of the node with a shallow copy of its data bag.
func (n *Node) Clone() *Node {
	c := *n
	c.Data = n.Data.Clone()
	return &c
}

// Bag is the per-node data storage shared between the host and handlers.
type Bag map[string]any

// Get returns the value stored under key, or nil.
func (b Bag) Get(key string) any {
	if b == nil {
		return nil
	}
	return b[key]
}

// Set stores value under key.
func (b Bag) Set(key string, value any) {
	b[key] = value
}

// Merge shallow-merges values into the map stored under key, creating it if needed.
func (b Bag) Merge(key string, values map[string]any) {
	cur, _ := b[key].(map[string]any)
	if cur == nil {
		cur = make(map[string]any, len(values))
	}
	for k, v := range values {
		cur[k] = v
	}
	b[key] = cur
}

// Delete removes key from the bag.
func (b Bag) Delete(key string) {
	delete(b, key)
}

// Clone returns a shallow copy of the bag.
func (b Bag) Clone() Bag {
	c := make(Bag, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Predicate selects nodes.
type Predicate func(*Node) bool

// IsEntryPoint matches entry point nodes.
func IsEntryPoint(n *Node) bool { return n.Type == TypeEntryPoint }

// IsPackage matches the package node.
func IsPackage(n *Node) bool { return n.Type == TypePackage }

// KeyPrimary is the data key marking the package's primary entry point.
const KeyPrimary = "primary"

// IsPrimary matches the primary entry point.
func IsPrimary(n *Node) bool {
	v, _ := n.Data.Get(KeyPrimary).(bool)
	return n.Type == TypeEntryPoint && v
}

// IsSecondary matches entry points other than the primary one.
func IsSecondary(n *Node) bool { return n.Type == TypeEntryPoint && !IsPrimary(n) }

// IsInProgress matches nodes currently being processed.
func IsInProgress(n *Node) bool { return n.State == StateInProgress }

// IsQueued matches nodes waiting to be processed.
func IsQueued(n *Node) bool { return n.State == StateQueued }

// InState matches nodes in the given state.
func InState(s NodeState) Predicate {
	return func(n *Node) bool { return n.State == s }
}

// And combines predicates; all must match.
func And(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// IsEntryPointInProgress matches the entry point the host is currently driving.
var IsEntryPointInProgress = And(IsEntryPoint, IsInProgress)

// IsEntryPointQueued matches entry points still waiting for the entry-scoped stages.
var IsEntryPointQueued = And(IsEntryPoint, IsQueued)
