package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinforge/kinforgebackend/apperrors"
	"github.com/kinforge/kinforgebackend/cache"
	"github.com/kinforge/kinforgebackend/repository"
	"github.com/kinforge/kinforgebackend/services"
)

type PersonHandler struct {
	PersonRepo repository.PersonRepositoryInterface
	Overrides  *services.OverrideService
	Identity   *services.IdentityService
	Cache      *cache.QueryCache
}

func (ph *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := ph.PersonRepo.ListAll()
	if err != nil {
		log.Printf("Error listing people: %v", err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// GetPerson returns the effective person view: stored fields overlaid with
// local overrides. The id may be canonical or a provider external id in the
// form resolved by the identity service.
func (ph *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")

	key := cache.Key("person", personID, "view")
	if cached, ok := ph.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	view, err := ph.Overrides.ApplyToPersonView(personID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("Error building view for person %s: %v", personID, err)
		}
		WriteError(w, err)
		return
	}
	ph.Cache.Set(key, view)
	writeJSON(w, http.StatusOK, view)
}

func (ph *PersonHandler) SearchPeople(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", "query parameter q is required")
		return
	}
	ids, err := ph.PersonRepo.Search(query)
	if err != nil {
		log.Printf("Error searching people for '%s': %v", query, err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": query, "person_ids": ids})
}

func (ph *PersonHandler) GetIdentities(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")
	ids, err := ph.Identity.ExternalIDs(personID)
	if err != nil {
		log.Printf("Error listing identities for %s: %v", personID, err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (ph *PersonHandler) GetOverrides(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")
	overrides, err := ph.Overrides.OverridesForPerson(personID)
	if err != nil {
		log.Printf("Error listing overrides for %s: %v", personID, err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}
