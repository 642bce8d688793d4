package handlers

import (
	"log"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/graph"
	"github.com/kinforge/kinforgebackend/repository"
)

type GraphHandler struct {
	EdgeRepo repository.EdgeRepositoryInterface
	Cache    *cache.QueryCache
}

// adjacency returns the materialized adjacency snapshot, memoized until the
// next write invalidates the "adjacency" prefix.
func (gh *GraphHandler) adjacency() (graph.Adjacency, error) {
	key := cache.Key("adjacency", "all")
	if cached, ok := gh.Cache.Get(key); ok {
		return cached.(graph.Adjacency), nil
	}
	edges, err := gh.EdgeRepo.ListAll()
	if err != nil {
		return nil, err
	}
	adj := graph.Materialize(edges)
	gh.Cache.Set(key, adj)
	return adj, nil
}

func (gh *GraphHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	source, target, ok := pathEndpoints(w, r)
	if !ok {
		return
	}
	adj, err := gh.adjacency()
	if err != nil {
		log.Printf("Error materializing adjacency: %v", err)
		WriteError(w, err)
		return
	}
	path := graph.ShortestPath(adj, source, target)
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "length": len(path)})
}

func (gh *GraphHandler) LongestPath(w http.ResponseWriter, r *http.Request) {
	source, target, ok := pathEndpoints(w, r)
	if !ok {
		return
	}
	adj, err := gh.adjacency()
	if err != nil {
		log.Printf("Error materializing adjacency: %v", err)
		WriteError(w, err)
		return
	}
	path, warnings := graph.LongestPath(adj, source, target)
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "length": len(path), "warnings": warnings})
}

func (gh *GraphHandler) RandomPath(w http.ResponseWriter, r *http.Request) {
	source, target, ok := pathEndpoints(w, r)
	if !ok {
		return
	}
	maxSteps, _ := strconv.Atoi(r.URL.Query().Get("max_steps"))
	adj, err := gh.adjacency()
	if err != nil {
		log.Printf("Error materializing adjacency: %v", err)
		WriteError(w, err)
		return
	}
	path := graph.RandomPath(adj, source, target, maxSteps, rand.New(rand.NewSource(rand.Int63())))
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "found": path != nil})
}

func (gh *GraphHandler) Tree(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	if root == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "query parameter root is required")
		return
	}
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	direction := graph.Direction(r.URL.Query().Get("direction"))
	if direction != graph.DirectionAncestors && direction != graph.DirectionDescendants {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "direction must be ancestors or descendants")
		return
	}

	adj, err := gh.adjacency()
	if err != nil {
		log.Printf("Error materializing adjacency: %v", err)
		WriteError(w, err)
		return
	}
	tree := graph.BuildTree(adj, root, depth, direction)
	if tree == nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "root person is not in the graph")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func pathEndpoints(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "query parameters source and target are required")
		return "", "", false
	}
	return source, target, true
}
