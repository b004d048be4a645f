package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
	"github.com/fernwick/camtrapbackend/repository"
)

type DetectionHandler struct {
	DetectionRepo repository.DetectionRepositoryInterface
}

// ListDetections returns detections filtered by type, species, and review
// state, paginated.
func (dh *DetectionHandler) ListDetections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := repository.DetectionFilter{
		DetectionType: query.Get("type"),
		Limit:         parseIntQuery(r, "limit", 100),
		Offset:        parseIntQuery(r, "offset", 0),
	}

	if filter.DetectionType != "" && !database.IsValidDetectionType(filter.DetectionType) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_type", "Unknown detection type: "+filter.DetectionType)
		return
	}

	if speciesStr := query.Get("species_id"); speciesStr != "" {
		speciesID, err := strconv.ParseUint(speciesStr, 10, 32)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_species_id", "Invalid species ID format")
			return
		}
		filter.SpeciesID = uint(speciesID)
	}

	if reviewStr := query.Get("needs_review"); reviewStr != "" {
		needsReview, err := strconv.ParseBool(reviewStr)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_needs_review", "needs_review must be true or false")
			return
		}
		filter.NeedsReview = &needsReview
	}

	detections, err := dh.DetectionRepo.List(filter)
	if err != nil {
		log.Printf("Error listing detections: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve detections")
		return
	}
	if detections == nil {
		detections = []models.Detection{}
	}
	writeJSON(w, http.StatusOK, detections)
}

// GetDetection returns a single detection with its species preloaded
func (dh *DetectionHandler) GetDetection(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "detection_id")
	detectionID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid detection ID format")
		return
	}

	detection, err := dh.DetectionRepo.GetByID(uint(detectionID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Detection not found")
		} else {
			log.Printf("Error getting detection %d: %v", detectionID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve detection")
		}
		return
	}
	writeJSON(w, http.StatusOK, detection)
}

// UpdateVerification mutates the review flags on a detection. These are
// the only detection fields writable through the API; bounding boxes and
// confidences are immutable pipeline output.
func (dh *DetectionHandler) UpdateVerification(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "detection_id")
	detectionID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid detection ID format")
		return
	}

	var req struct {
		IsVerified      *bool `json:"is_verified"`
		IsFalsePositive *bool `json:"is_false_positive"`
		NeedsReview     *bool `json:"needs_review"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if req.IsVerified == nil && req.IsFalsePositive == nil && req.NeedsReview == nil {
		WriteAPIError(w, http.StatusBadRequest, "empty_update", "At least one review flag must be provided")
		return
	}

	if err := dh.DetectionRepo.UpdateVerification(uint(detectionID), req.IsVerified, req.IsFalsePositive, req.NeedsReview); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Detection not found")
		} else {
			log.Printf("Error updating verification for detection %d: %v", detectionID, err)
			WriteAPIError(w, http.StatusInternalServerError, "update_failed", "Failed to update detection")
		}
		return
	}

	detection, err := dh.DetectionRepo.GetByID(uint(detectionID))
	if err != nil {
		log.Printf("Error fetching updated detection %d: %v", detectionID, err)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Detection updated"})
		return
	}
	writeJSON(w, http.StatusOK, detection)
}
