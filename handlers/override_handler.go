package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/models"
	"github.com/kinforge/kinforgebackend/services"
)

type OverrideHandler struct {
	Overrides *services.OverrideService
	Cache     *cache.QueryCache
}

func (oh *OverrideHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType    string  `json:"entity_type"`
		EntityID      string  `json:"entity_id"`
		FieldName     string  `json:"field_name"`
		Value         string  `json:"value"`
		OriginalValue string  `json:"original_value"`
		Reason        *string `json:"reason"`
		Source        string  `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}
	if req.Source == "" {
		req.Source = models.SourceLocal
	}

	override, err := oh.Overrides.SetOverride(req.EntityType, req.EntityID, req.FieldName, req.Value, req.OriginalValue, req.Reason, req.Source)
	if err != nil {
		log.Printf("Error setting override %s/%s/%s: %v", req.EntityType, req.EntityID, req.FieldName, err)
		WriteError(w, err)
		return
	}
	oh.invalidate(req.EntityType, req.EntityID)
	writeJSON(w, http.StatusOK, override)
}

func (oh *OverrideHandler) SetEventOverride(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")
	var req struct {
		EventType string  `json:"event_type"`
		FieldName string  `json:"field_name"`
		Value     string  `json:"value"`
		Reason    *string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "Missing required field: event_type")
		return
	}

	override, err := oh.Overrides.SetEventOverride(personID, req.EventType, req.FieldName, req.Value, req.Reason)
	if err != nil {
		log.Printf("Error setting %s override for person %s: %v", req.EventType, personID, err)
		WriteError(w, err)
		return
	}
	oh.Cache.InvalidatePrefix("integrity")
	oh.Cache.InvalidatePrefix(cache.Key("person", personID))
	writeJSON(w, http.StatusOK, override)
}

func (oh *OverrideHandler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	entityID := chi.URLParam(r, "entity_id")
	fieldName := chi.URLParam(r, "field_name")

	existed, err := oh.Overrides.RemoveOverride(entityType, entityID, fieldName)
	if err != nil {
		log.Printf("Error removing override %s/%s/%s: %v", entityType, entityID, fieldName, err)
		WriteError(w, err)
		return
	}
	if !existed {
		WriteAPIError(w, http.StatusNotFound, "not_found", "No override exists for that field")
		return
	}
	oh.invalidate(entityType, entityID)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// invalidate flushes cached person views that may embed this override. For
// event and claim overrides the owning person is not derivable from the key
// alone, so the whole person prefix is dropped.
func (oh *OverrideHandler) invalidate(entityType, entityID string) {
	oh.Cache.InvalidatePrefix("integrity")
	if entityType == models.EntityPerson {
		oh.Cache.InvalidatePrefix(cache.Key("person", entityID))
		return
	}
	oh.Cache.InvalidatePrefix("person")
}
