package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/kinforge/kinforgebackend/services"
)

type IntegrityHandler struct {
	Integrity *services.IntegrityService
}

func (ih *IntegrityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := ih.Integrity.Summary()
	if err != nil {
		log.Printf("Error computing graph summary: %v", err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (ih *IntegrityHandler) CoverageGaps(w http.ResponseWriter, r *http.Request) {
	providersParam := r.URL.Query().Get("providers")
	var providers []string
	if providersParam != "" {
		providers = strings.Split(providersParam, ",")
	}
	gaps, err := ih.Integrity.CoverageGaps(providers)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gaps)
}

func (ih *IntegrityHandler) LinkageGaps(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	gaps, err := ih.Integrity.ParentLinkageGaps(provider)
	if err != nil {
		log.Printf("Error finding linkage gaps: %v", err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gaps)
}

func (ih *IntegrityHandler) OrphanedEdges(w http.ResponseWriter, r *http.Request) {
	orphans, warnings, err := ih.Integrity.OrphanedEdges()
	if err != nil {
		log.Printf("Error finding orphaned edges: %v", err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orphans": orphans, "warnings": warnings})
}

func (ih *IntegrityHandler) StalePayloads(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	stale, err := ih.Integrity.StalePayloads(provider)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stale)
}

func (ih *IntegrityHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ih.Integrity.CacheStats())
}
