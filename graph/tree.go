package graph

// Direction selects which relation a tree or crawl expands along.
type Direction string

const (
	DirectionAncestors   Direction = "ancestors"
	DirectionDescendants Direction = "descendants"
	DirectionBoth        Direction = "both"
)

// TreeNode is a plain materialized tree value for presentation. Depth is
// generations from the root.
type TreeNode struct {
	ID       string      `json:"id"`
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree materializes an ancestor or descendant tree from the adjacency
// view, bounded by maxDepth generations. A node reachable along multiple
// lines appears once per line but is never expanded past a repeat on its own
// line, so pedigree collapse cannot recurse forever.
func BuildTree(adj Adjacency, root string, maxDepth int, dir Direction) *TreeNode {
	if !adj.Has(root) {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}
	return buildSubtree(adj, root, 0, maxDepth, dir, map[string]bool{})
}

func buildSubtree(adj Adjacency, id string, depth, maxDepth int, dir Direction, line map[string]bool) *TreeNode {
	node := &TreeNode{ID: id, Depth: depth}
	if depth >= maxDepth {
		return node
	}

	var next []string
	if n, ok := adj[id]; ok {
		switch dir {
		case DirectionAncestors:
			next = n.Parents
		case DirectionDescendants:
			next = n.Children
		}
	}

	line[id] = true
	for _, childID := range next {
		if line[childID] {
			continue
		}
		node.Children = append(node.Children, buildSubtree(adj, childID, depth+1, maxDepth, dir, line))
	}
	delete(line, id)
	return node
}
