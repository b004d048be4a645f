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

	"github.com/fernwick/camtrapbackend/models"
	"github.com/fernwick/camtrapbackend/repository"
)

type LocationHandler struct {
	LocationRepo repository.LocationRepositoryInterface
}

// ListLocations returns camera deployments; ?active=true hides retired ones
func (lh *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		parsed, err := strconv.ParseBool(activeStr)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_active", "active must be true or false")
			return
		}
		activeOnly = parsed
	}

	locations, err := lh.LocationRepo.List(activeOnly)
	if err != nil {
		log.Printf("Error listing locations: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve locations")
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

// GetLocation returns one deployment by its camera identifier
func (lh *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")
	if cameraID == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Missing camera ID")
		return
	}

	location, err := lh.LocationRepo.GetByCameraID(cameraID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Location not found")
		} else {
			log.Printf("Error getting location %s: %v", cameraID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve location")
		}
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// UpsertLocation registers or updates a camera deployment. The camera
// identifier is the natural key; images captured by the camera link to
// this row during processing.
func (lh *LocationHandler) UpsertLocation(w http.ResponseWriter, r *http.Request) {
	var location models.Location
	if err := json.NewDecoder(r.Body).Decode(&location); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(location.CameraID) == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_field", "Missing required field: camera_id")
		return
	}
	if location.Latitude < -90 || location.Latitude > 90 || location.Longitude < -180 || location.Longitude > 180 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_coordinates", "Latitude/longitude out of range")
		return
	}

	if err := lh.LocationRepo.Upsert(&location); err != nil {
		log.Printf("Error upserting location '%s': %v", location.CameraID, err)
		WriteAPIError(w, http.StatusInternalServerError, "upsert_failed", "Failed to save location")
		return
	}
	writeJSON(w, http.StatusOK, location)
}
