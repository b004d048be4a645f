package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/models"
)

// LocationRepository handles database operations for camera deployments
type LocationRepository struct {
	DB *gorm.DB
}

// NewLocationRepository creates a new instance of LocationRepository
func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{DB: db}
}

// GetByID retrieves a location by its primary key
func (r *LocationRepository) GetByID(id uint) (*models.Location, error) {
	var location models.Location
	err := r.DB.First(&location, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get location %d: %w", id, err)
	}
	return &location, nil
}

// GetByCameraID retrieves a location by its camera identifier
func (r *LocationRepository) GetByCameraID(cameraID string) (*models.Location, error) {
	var location models.Location
	err := r.DB.Where("camera_id = ?", cameraID).First(&location).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get location by camera id %s: %w", cameraID, err)
	}
	return &location, nil
}

// Upsert creates or updates a location keyed by camera id. The derived
// geo point is recomputed by the model's BeforeSave hook on every save,
// so it always reflects the latest coordinates.
func (r *LocationRepository) Upsert(location *models.Location) error {
	now := time.Now().Unix()

	existing, err := r.GetByCameraID(location.CameraID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	if existing != nil {
		location.ID = existing.ID
		location.CreatedAt = existing.CreatedAt
	} else {
		location.CreatedAt = now
	}
	location.UpdatedAt = now

	if err := r.DB.Save(location).Error; err != nil {
		return fmt.Errorf("failed to upsert location %s: %w", location.CameraID, err)
	}
	return nil
}

// List retrieves camera deployments, optionally restricted to active ones
func (r *LocationRepository) List(activeOnly bool) ([]models.Location, error) {
	query := r.DB.Model(&models.Location{}).Order("camera_id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var locations []models.Location
	if err := query.Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}
