package graph

import (
	"github.com/kinforge/kinforgebackend/models"
)

// Neighbors holds the directed relations of one node. Slice order is edge
// insertion order, which is what breaks ties in BFS discovery.
type Neighbors struct {
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// Adjacency is a read-only snapshot view of the parent/child graph. All path
// algorithms operate on this snapshot and never touch the store.
type Adjacency map[string]*Neighbors

// Materialize builds an adjacency view from parent edge rows, preserving row
// order within each node's neighbor lists.
func Materialize(edges []models.ParentEdge) Adjacency {
	adj := make(Adjacency)
	node := func(id string) *Neighbors {
		n, ok := adj[id]
		if !ok {
			n = &Neighbors{}
			adj[id] = n
		}
		return n
	}
	for _, edge := range edges {
		node(edge.ParentID).Children = append(node(edge.ParentID).Children, edge.ChildID)
		node(edge.ChildID).Parents = append(node(edge.ChildID).Parents, edge.ParentID)
	}
	return adj
}

// Bounded returns the sub-view reachable from root within maxGenerations
// steps in either direction. maxGenerations <= 0 returns the full view.
func (adj Adjacency) Bounded(root string, maxGenerations int) Adjacency {
	if maxGenerations <= 0 {
		return adj
	}
	if _, ok := adj[root]; !ok {
		return Adjacency{}
	}

	depth := map[string]int{root: 0}
	queue := []string{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if depth[id] >= maxGenerations {
			continue
		}
		n := adj[id]
		if n == nil {
			continue
		}
		for _, next := range append(append([]string{}, n.Parents...), n.Children...) {
			if _, seen := depth[next]; !seen {
				depth[next] = depth[id] + 1
				queue = append(queue, next)
			}
		}
	}

	sub := make(Adjacency, len(depth))
	for id := range depth {
		src := adj[id]
		if src == nil {
			continue
		}
		kept := &Neighbors{}
		for _, p := range src.Parents {
			if _, ok := depth[p]; ok {
				kept.Parents = append(kept.Parents, p)
			}
		}
		for _, c := range src.Children {
			if _, ok := depth[c]; ok {
				kept.Children = append(kept.Children, c)
			}
		}
		sub[id] = kept
	}
	return sub
}

// Has reports whether the view contains a node.
func (adj Adjacency) Has(id string) bool {
	_, ok := adj[id]
	return ok
}

func (adj Adjacency) children(id string) []string {
	if n, ok := adj[id]; ok {
		return n.Children
	}
	return nil
}
