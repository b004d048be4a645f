package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/models"
)

// DetectionRepository handles database operations for Detection entities.
// Detections are created in batches by ImageRepository.SaveDetectionResult;
// this repository covers reads and the verification flags, the only fields
// mutable after creation.
type DetectionRepository struct {
	DB *gorm.DB
}

// NewDetectionRepository creates a new instance of DetectionRepository
func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{DB: db}
}

// GetByID retrieves a detection with its species preloaded
func (r *DetectionRepository) GetByID(id uint) (*models.Detection, error) {
	var detection models.Detection
	err := r.DB.Preload("Species").First(&detection, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get detection %d: %w", id, err)
	}
	return &detection, nil
}

// ListByImageID retrieves all detections for one image, highest detector
// confidence first
func (r *DetectionRepository) ListByImageID(imageID uint) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.DB.Preload("Species").
		Where("image_id = ?", imageID).
		Order("detector_confidence DESC").
		Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections for image %d: %w", imageID, err)
	}
	return detections, nil
}

// List retrieves detections matching the filter for the dashboard
func (r *DetectionRepository) List(filter DetectionFilter) ([]models.Detection, error) {
	query := r.DB.Preload("Species").Order("created_at DESC")

	if filter.DetectionType != "" {
		query = query.Where("detection_type = ?", filter.DetectionType)
	}
	if filter.SpeciesID != 0 {
		query = query.Where("species_id = ?", filter.SpeciesID)
	}
	if filter.NeedsReview != nil {
		query = query.Where("needs_review = ?", *filter.NeedsReview)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var detections []models.Detection
	if err := query.Find(&detections).Error; err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return detections, nil
}

// UpdateVerification sets the human-review flags on a detection. Nil
// arguments leave the corresponding flag unchanged.
func (r *DetectionRepository) UpdateVerification(id uint, isVerified, isFalsePositive, needsReview *bool) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().Unix(),
	}
	if isVerified != nil {
		updates["is_verified"] = *isVerified
	}
	if isFalsePositive != nil {
		updates["is_false_positive"] = *isFalsePositive
	}
	if needsReview != nil {
		updates["needs_review"] = *needsReview
	}

	result := r.DB.Model(&models.Detection{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update verification for detection %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
