package graph

import (
	"fmt"
	"math/rand"

	"github.com/kinforge/kinforgebackend/apperrors"
)

// ShortestPath finds a minimum-edge-count path from source to target along
// the children relation using breadth-first search. Ties are broken by BFS
// discovery order, which follows edge insertion order. Returns nil if target
// is unreachable.
func ShortestPath(adj Adjacency, source, target string) []string {
	if !adj.Has(source) || !adj.Has(target) {
		return nil
	}
	if source == target {
		return []string{source}
	}

	predecessor := map[string]string{source: ""}
	queue := []string{source}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == target {
			// walk predecessor links back to source and reverse
			var path []string
			for at := target; at != ""; at = predecessor[at] {
				path = append(path, at)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, next := range adj.children(id) {
			if _, seen := predecessor[next]; !seen {
				predecessor[next] = id
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// LongestPath finds the longest simple path from source to target along the
// children relation. It explores a queue of path prefixes, re-enqueueing a
// node only when reached along a strictly longer prefix than any previously
// recorded for it, which bounds re-exploration. A child already present in
// the current prefix means the underlying data has a cycle; that branch is
// pruned and reported as an integrity warning instead of looping forever.
func LongestPath(adj Adjacency, source, target string) ([]string, []apperrors.IntegrityWarning) {
	if !adj.Has(source) || !adj.Has(target) {
		return nil, nil
	}
	if source == target {
		return []string{source}, nil
	}

	var warnings []apperrors.IntegrityWarning
	reportedCycles := make(map[string]bool)

	bestDepth := map[string]int{source: 0}
	var best []string
	queue := [][]string{{source}}

	for len(queue) > 0 {
		prefix := queue[0]
		queue = queue[1:]
		tip := prefix[len(prefix)-1]

		if tip == target {
			if len(prefix) > len(best) {
				best = append([]string{}, prefix...)
			}
			continue
		}

		onPrefix := make(map[string]bool, len(prefix))
		for _, id := range prefix {
			onPrefix[id] = true
		}

		for _, next := range adj.children(tip) {
			if onPrefix[next] {
				if !reportedCycles[next] {
					reportedCycles[next] = true
					warnings = append(warnings, apperrors.IntegrityWarning{
						Kind:     "cycle",
						Detail:   fmt.Sprintf("parent/child cycle through %s reached from %s", next, tip),
						Involved: append(append([]string{}, prefix...), next),
					})
				}
				continue
			}
			depth := len(prefix)
			if prev, seen := bestDepth[next]; seen && depth <= prev {
				continue
			}
			bestDepth[next] = depth
			extended := make([]string, len(prefix)+1)
			copy(extended, prefix)
			extended[len(prefix)] = next
			queue = append(queue, extended)
		}
	}
	return best, warnings
}

// RandomPath performs a bounded stochastic walk from source, picking
// uniformly among forward edges at each step. It stops on reaching target, a
// dead end, a revisit, or the step budget. This is an exploratory sampler:
// it may return nil even when a path exists, but it can never loop
// indefinitely. Pass a seeded rng for reproducible walks; nil uses the
// global source.
func RandomPath(adj Adjacency, source, target string, maxSteps int, rng *rand.Rand) []string {
	if !adj.Has(source) || !adj.Has(target) {
		return nil
	}
	if maxSteps <= 0 {
		maxSteps = 64
	}
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}

	visited := map[string]bool{source: true}
	path := []string{source}
	current := source
	for step := 0; step < maxSteps; step++ {
		if current == target {
			return path
		}
		var options []string
		for _, next := range adj.children(current) {
			if !visited[next] {
				options = append(options, next)
			}
		}
		if len(options) == 0 {
			break
		}
		current = options[intn(len(options))]
		visited[current] = true
		path = append(path, current)
	}
	if current == target {
		return path
	}
	return nil
}
