package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
)

type StatsHandler struct {
	DB *gorm.DB
}

// ListLocationStats returns the materialized per-location aggregates.
// The rows may lag behind the base tables until the next refresh.
func (sh *StatsHandler) ListLocationStats(w http.ResponseWriter, r *http.Request) {
	var stats []models.LocationStatistic
	if err := sh.DB.Order("camera_id ASC").Find(&stats).Error; err != nil {
		log.Printf("Error listing location statistics: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve location statistics")
		return
	}
	if stats == nil {
		stats = []models.LocationStatistic{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListSpeciesStats returns the materialized per-species aggregates
func (sh *StatsHandler) ListSpeciesStats(w http.ResponseWriter, r *http.Request) {
	var stats []models.SpeciesStatistic
	if err := sh.DB.Order("total_detections DESC").Find(&stats).Error; err != nil {
		log.Printf("Error listing species statistics: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve species statistics")
		return
	}
	if stats == nil {
		stats = []models.SpeciesStatistic{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// RefreshStats triggers an immediate rebuild of both aggregate tables
func (sh *StatsHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	if err := database.RefreshStatistics(sh.DB); err != nil {
		log.Printf("Error refreshing statistics: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "refresh_failed", "Failed to refresh statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Statistics refreshed"})
}
