package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kinforge/kinforgebackend/graph"
	"github.com/kinforge/kinforgebackend/workers"
)

type IndexHandler struct {
	Indexer *workers.Indexer
}

func (ih *IndexHandler) StartIndexing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RootExternalID string   `json:"root_external_id"`
		Source         string   `json:"source"`
		MaxGenerations int      `json:"max_generations"`
		CacheMode      string   `json:"cache_mode"`
		Direction      string   `json:"direction"`
		IgnoreIDs      []string `json:"ignore_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}

	summary, err := ih.Indexer.Start(workers.IndexOptions{
		RootExternalID: req.RootExternalID,
		Source:         req.Source,
		MaxGenerations: req.MaxGenerations,
		CacheMode:      workers.CacheMode(req.CacheMode),
		Direction:      graph.Direction(req.Direction),
		IgnoreIDs:      req.IgnoreIDs,
	})
	if err != nil {
		log.Printf("Error starting index job for %s:%s: %v", req.Source, req.RootExternalID, err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, summary)
}

func (ih *IndexHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := ih.Indexer.Status()
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (ih *IndexHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := ih.Indexer.Cancel(); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancel requested"})
}

func (ih *IndexHandler) StartDiscovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}

	summary, err := ih.Indexer.DiscoverMissingLinks(req.Provider)
	if err != nil {
		log.Printf("Error starting discovery for provider %s: %v", req.Provider, err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, summary)
}
