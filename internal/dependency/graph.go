// Package dependency models which packages depend on which others.
//
// Nodes are added with the IDs of the nodes they depend on. Edges to IDs that
// were never added are kept but ignored by ordering and cycle queries, since
// the provider may be the host application or may never appear at all.
package dependency

import (
	"sort"
)

// NodeID uniquely identifies a node in the graph.
type NodeID string

// Node is a vertex of the graph.
type Node struct {
	ID           NodeID
	FriendlyName string
	DependsOn    []NodeID
}

// Graph is a directed dependency graph. It is not safe for concurrent
// mutation; build it once and query it afterwards.
type Graph struct {
	nodes map[NodeID]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds or replaces a node. Duplicate edges are collapsed.
func (g *Graph) AddNode(n Node) {
	seen := make(map[NodeID]struct{}, len(n.DependsOn))
	deps := make([]NodeID, 0, len(n.DependsOn))
	for _, dep := range n.DependsOn {
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	n.DependsOn = deps
	g.nodes[n.ID] = &n
}

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all node IDs in sorted order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Dependencies returns the direct dependencies of id that exist in the graph.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	node := g.nodes[id]
	if node == nil {
		return nil
	}
	var deps []NodeID
	for _, dep := range node.DependsOn {
		if _, ok := g.nodes[dep]; ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// Dependents returns every node that depends on id directly or transitively,
// in sorted order. id itself is never included.
func (g *Graph) Dependents(id NodeID) []NodeID {
	reverse := g.reverseEdges()

	visited := map[NodeID]bool{id: true}
	queue := []NodeID{id}
	var result []NodeID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[current] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			result = append(result, dependent)
			queue = append(queue, dependent)
		}
	}

	sortIDs(result)
	return result
}

// Levels groups nodes into layers: level 0 has no dependencies inside the
// graph, level n depends only on earlier levels. Nodes that sit on or behind a
// cycle cannot be layered and are returned as blocked.
func (g *Graph) Levels() (levels [][]NodeID, blocked []NodeID) {
	inDegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.Dependencies(id))
	}
	reverse := g.reverseEdges()

	var current []NodeID
	for id, degree := range inDegree {
		if degree == 0 {
			current = append(current, id)
		}
	}

	placed := 0
	for len(current) > 0 {
		sortIDs(current)
		levels = append(levels, current)
		placed += len(current)

		var next []NodeID
		for _, id := range current {
			for _, dependent := range reverse[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	if placed < len(g.nodes) {
		for id, degree := range inDegree {
			if degree > 0 {
				blocked = append(blocked, id)
			}
		}
		sortIDs(blocked)
	}
	return levels, blocked
}

// Cycles returns the nodes that lie on at least one dependency cycle, sorted.
// Nodes that merely depend on a cycle are not included.
func (g *Graph) Cycles() []NodeID {
	var cyclic []NodeID
	for _, group := range g.CycleGroups() {
		cyclic = append(cyclic, group...)
	}
	sortIDs(cyclic)
	return cyclic
}

// CycleGroups returns each dependency cycle as its own sorted group of
// nodes. Groups are ordered by their first node.
func (g *Graph) CycleGroups() [][]NodeID {
	t := &tarjan{
		graph:   g,
		index:   make(map[NodeID]int),
		lowlink: make(map[NodeID]int),
		onStack: make(map[NodeID]bool),
	}
	for _, id := range g.Nodes() {
		if _, seen := t.index[id]; !seen {
			t.strongConnect(id)
		}
	}
	for _, group := range t.cycles {
		sortIDs(group)
	}
	sort.Slice(t.cycles, func(i, j int) bool { return t.cycles[i][0] < t.cycles[j][0] })
	return t.cycles
}

func (g *Graph) reverseEdges() map[NodeID][]NodeID {
	reverse := make(map[NodeID][]NodeID, len(g.nodes))
	for id := range g.nodes {
		for _, dep := range g.Dependencies(id) {
			reverse[dep] = append(reverse[dep], id)
		}
	}
	return reverse
}

// tarjan finds strongly connected components; any component with more than
// one node, or a node depending on itself, is a cycle.
type tarjan struct {
	graph   *Graph
	counter int
	index   map[NodeID]int
	lowlink map[NodeID]int
	stack   []NodeID
	onStack map[NodeID]bool
	cycles  [][]NodeID
}

func (t *tarjan) strongConnect(id NodeID) {
	t.index[id] = t.counter
	t.lowlink[id] = t.counter
	t.counter++
	t.stack = append(t.stack, id)
	t.onStack[id] = true

	selfLoop := false
	for _, dep := range t.graph.Dependencies(id) {
		if dep == id {
			selfLoop = true
		}
		if _, seen := t.index[dep]; !seen {
			t.strongConnect(dep)
			t.lowlink[id] = min(t.lowlink[id], t.lowlink[dep])
		} else if t.onStack[dep] {
			t.lowlink[id] = min(t.lowlink[id], t.index[dep])
		}
	}

	if t.lowlink[id] != t.index[id] {
		return
	}

	var component []NodeID
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		component = append(component, top)
		if top == id {
			break
		}
	}
	if len(component) > 1 || selfLoop {
		t.cycles = append(t.cycles, component)
	}
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
