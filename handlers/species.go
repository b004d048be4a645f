package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
	"github.com/fernwick/camtrapbackend/repository"
)

type SpeciesHandler struct {
	SpeciesRepo repository.SpeciesRepositoryInterface
}

// ListSpecies returns catalog entries, optionally filtered by IUCN status
func (sh *SpeciesHandler) ListSpecies(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("conservation_status")
	if status != "" && !database.IsValidConservationStatus(status) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_status", "Unknown conservation status: "+status)
		return
	}

	species, err := sh.SpeciesRepo.List(status, parseIntQuery(r, "limit", 200), parseIntQuery(r, "offset", 0))
	if err != nil {
		log.Printf("Error listing species: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve species")
		return
	}
	if species == nil {
		species = []models.Species{}
	}
	writeJSON(w, http.StatusOK, species)
}

// GetSpecies returns one catalog entry by primary key
func (sh *SpeciesHandler) GetSpecies(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "species_id")
	speciesID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid species ID format")
		return
	}

	species, err := sh.SpeciesRepo.GetByID(uint(speciesID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Species not found")
		} else {
			log.Printf("Error getting species %d: %v", speciesID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve species")
		}
		return
	}
	writeJSON(w, http.StatusOK, species)
}

// UpsertSpecies seeds or enriches a catalog entry keyed by scientific
// name. Stub rows created by the pipeline pick up their descriptive
// fields through this endpoint.
func (sh *SpeciesHandler) UpsertSpecies(w http.ResponseWriter, r *http.Request) {
	var species models.Species
	if err := json.NewDecoder(r.Body).Decode(&species); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(species.ScientificName) == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_field", "Missing required field: scientific_name")
		return
	}
	if species.ConservationStatus != nil && !database.IsValidConservationStatus(*species.ConservationStatus) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_status", "Unknown conservation status: "+*species.ConservationStatus)
		return
	}

	if err := sh.SpeciesRepo.Upsert(&species); err != nil {
		log.Printf("Error upserting species '%s': %v", species.ScientificName, err)
		WriteAPIError(w, http.StatusInternalServerError, "upsert_failed", "Failed to save species")
		return
	}
	writeJSON(w, http.StatusOK, species)
}
