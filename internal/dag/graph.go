// Package dag builds the step dependency graph and computes both the full
// topological execution order and the minimal subgraph order needed to
// materialize one target step. Kahn's algorithm with a min-priority
// queue keyed by sortOrder yields one flat, deterministic order; steps
// within a run execute sequentially, so no level-grouping is needed.
package dag

import (
	"container/heap"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Node is a vertex in the dependency graph.
type Node struct {
	ID         string
	SortOrder  int
	DependsOn  []string // predecessors (must run before this node)
	Dependents []string // successors
}

// Graph is the dependency graph over a suite's steps.
type Graph struct {
	Nodes map[string]*Node
}

// Build constructs a Graph from a suite's steps. Dependency edges point
// from dependent to depended-upon.
func Build(steps []suite.TestStep) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*Node, len(steps))}

	for _, step := range steps {
		if _, exists := g.Nodes[step.ID]; exists {
			return nil, apperrors.NewValidationError("steps", "duplicate step id \""+step.ID+"\"", nil)
		}
		g.Nodes[step.ID] = &Node{ID: step.ID, SortOrder: step.SortOrder}
	}

	for _, step := range steps {
		node := g.Nodes[step.ID]
		for _, dep := range step.Dependencies {
			target, ok := g.Nodes[dep.DependsOnStepID]
			if !ok {
				return nil, apperrors.NewValidationError("steps", "unknown dependency target \""+dep.DependsOnStepID+"\"", nil)
			}
			node.DependsOn = append(node.DependsOn, target.ID)
			target.Dependents = append(target.Dependents, node.ID)
		}
	}

	return g, nil
}

// sortOrderQueue is a min-priority queue of step IDs ordered by SortOrder,
// breaking remaining ties by ID for full determinism.
type sortOrderQueue struct {
	ids   []string
	graph *Graph
}

func (q *sortOrderQueue) Len() int { return len(q.ids) }
func (q *sortOrderQueue) Less(i, j int) bool {
	oi, oj := q.graph.Nodes[q.ids[i]].SortOrder, q.graph.Nodes[q.ids[j]].SortOrder
	if oi != oj {
		return oi < oj
	}
	return q.ids[i] < q.ids[j]
}
func (q *sortOrderQueue) Swap(i, j int) { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *sortOrderQueue) Push(x interface{}) { q.ids = append(q.ids, x.(string)) }
func (q *sortOrderQueue) Pop() interface{} {
	old := q.ids
	n := len(old)
	item := old[n-1]
	q.ids = old[:n-1]
	return item
}

// FullSort computes a deterministic topological order over every node in
// the graph using Kahn's algorithm with a min-priority queue keyed by
// SortOrder: among steps with no unmet dependency at a given
// time, the one with the lowest SortOrder is emitted first.
func (g *Graph) FullSort() ([]string, error) {
	return kahn(g, allIDs(g))
}

// SubgraphSort returns the minimal prefix needed to execute target: target
// itself plus every reflexive-transitive predecessor, topologically
// ordered.
func (g *Graph) SubgraphSort(target string) ([]string, error) {
	if _, ok := g.Nodes[target]; !ok {
		return nil, apperrors.NewNotFoundError("step", target, nil)
	}

	included := make(map[string]bool)
	queue := []string{target}
	included[target] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, pred := range g.Nodes[id].DependsOn {
			if !included[pred] {
				included[pred] = true
				queue = append(queue, pred)
			}
		}
	}

	subset := make([]string, 0, len(included))
	for id := range included {
		subset = append(subset, id)
	}

	return kahn(g, subset)
}

func allIDs(g *Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	return ids
}

// kahn runs Kahn's algorithm restricted to the given subset of node IDs.
// Edges to nodes outside the subset are ignored, which is what makes
// SubgraphSort correct over an induced subgraph.
func kahn(g *Graph, subset []string) ([]string, error) {
	inSubset := make(map[string]bool, len(subset))
	for _, id := range subset {
		inSubset[id] = true
	}

	indegree := make(map[string]int, len(subset))
	for _, id := range subset {
		count := 0
		for _, pred := range g.Nodes[id].DependsOn {
			if inSubset[pred] {
				count++
			}
		}
		indegree[id] = count
	}

	pq := &sortOrderQueue{graph: g}
	for _, id := range subset {
		if indegree[id] == 0 {
			heap.Push(pq, id)
		}
	}

	order := make([]string, 0, len(subset))
	for pq.Len() > 0 {
		id := heap.Pop(pq).(string)
		order = append(order, id)
		for _, dep := range g.Nodes[id].Dependents {
			if !inSubset[dep] {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				heap.Push(pq, dep)
			}
		}
	}

	if len(order) != len(subset) {
		return nil, apperrors.NewValidationError("steps", "cycle detected while sorting graph", nil)
	}

	return order, nil
}

// FilterDependencyOnly removes dependencyOnly steps from a full execution
// order: they are materialized on demand rather than scheduled as
// top-level steps.
func FilterDependencyOnly(order []string, steps []suite.TestStep) []string {
	dependencyOnly := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.DependencyOnly {
			dependencyOnly[s.ID] = true
		}
	}

	filtered := make([]string, 0, len(order))
	for _, id := range order {
		if !dependencyOnly[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered
}
