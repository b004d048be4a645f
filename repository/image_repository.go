package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/media"
	"github.com/fernwick/camtrapbackend/models"
)

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// GetByID retrieves full image info by its primary key
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.First(&image, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image %d: %w", id, err)
	}
	return &image, nil
}

// GetByKey retrieves full image info by its storage key
func (r *ImageRepository) GetByKey(s3Key string) (*models.Image, error) {
	var image models.Image
	err := r.DB.Where("s3_key = ?", s3Key).First(&image).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image by key %s: %w", s3Key, err)
	}
	return &image, nil
}

// EnsureExists creates the image row for a storage key if it doesn't exist.
// The unique index on s3_key guarantees at most one row per key no matter
// how many times a notification is delivered. Returns true if a new record
// was created; when the row already existed, the passed struct is loaded
// with the stored record.
//
// FirstOrCreate is a select followed by an insert, so two workers handling
// the same key concurrently can both miss the select and race the insert.
// The loser's unique-index violation is not an error here: the row exists,
// which is all this guarantees, so the winner's row is loaded instead.
func (r *ImageRepository) EnsureExists(image *models.Image) (bool, error) {
	now := time.Now().Unix()
	if image.UploadedAt == 0 {
		image.UploadedAt = now
	}
	image.ProcessingStatus = database.StatusPending

	result := r.DB.Where(models.Image{S3Key: image.S3Key}).FirstOrCreate(image)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			existing, err := r.GetByKey(image.S3Key)
			if err != nil {
				return false, fmt.Errorf("failed to load image record for %s after insert race: %w", image.S3Key, err)
			}
			*image = *existing
			return false, nil
		}
		return false, fmt.Errorf("failed to ensure image record for %s: %w", image.S3Key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClaimProcessing performs the conditional pending -> processing
// transition. A row already in processing can only be re-claimed when its
// last update is older than staleBefore: that resumes work abandoned by a
// timed-out invocation while a freshly claimed row stays owned by the
// worker that claimed it. Returns false when the claim did not succeed.
func (r *ImageRepository) ClaimProcessing(imageID uint, staleBefore int64) (bool, error) {
	result := r.DB.Model(&models.Image{}).
		Where("id = ? AND (processing_status = ? OR (processing_status = ? AND updated_at < ?))",
			imageID, database.StatusPending, database.StatusProcessing, staleBefore).
		Updates(map[string]interface{}{
			"processing_status": database.StatusProcessing,
			"error_message":     gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim image %d for processing: %w", imageID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateMetadata stores extracted metadata and quality scores on the image.
// Both arguments are optional; extraction is best-effort and a partial
// record is still worth persisting.
func (r *ImageRepository) UpdateMetadata(imageID uint, meta *media.Metadata, quality *media.Quality) error {
	updateData := map[string]interface{}{}

	if meta != nil {
		updateData["width"] = meta.Width
		updateData["height"] = meta.Height
		updateData["format"] = meta.Format
		updateData["captured_at"] = meta.CapturedAt
		updateData["gps_latitude"] = meta.GPSLatitude
		updateData["gps_longitude"] = meta.GPSLongitude
		updateData["gps_altitude"] = meta.GPSAltitude
		updateData["camera_make"] = meta.CameraMake
		updateData["camera_model"] = meta.CameraModel
	}
	if quality != nil {
		updateData["brightness_score"] = quality.Brightness
		updateData["sharpness_score"] = quality.Sharpness
		updateData["quality_score"] = quality.Overall
	}
	if len(updateData) == 0 {
		return nil
	}

	result := r.DB.Model(&models.Image{}).Where("id = ?", imageID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update metadata for image %d: %w", imageID, result.Error)
	}
	return nil
}

// SetLocation links the image to a registered camera deployment. A camera
// id with no matching location is allowed and simply leaves the FK null.
func (r *ImageRepository) SetLocation(imageID uint, cameraID *string, locationID *uint) error {
	result := r.DB.Model(&models.Image{}).Where("id = ?", imageID).Updates(map[string]interface{}{
		"camera_id":   cameraID,
		"location_id": locationID,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set location for image %d: %w", imageID, result.Error)
	}
	return nil
}

// SaveDetectionResult writes the complete detection set for an image in a
// single transaction: either every detection row is visible together with
// the matching detection_count, or none are. Existing rows for the image
// are replaced so a resumed invocation cannot leave duplicates.
func (r *ImageRepository) SaveDetectionResult(imageID uint, detections []models.Detection) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", imageID).Delete(&models.Detection{}).Error; err != nil {
			return fmt.Errorf("failed to delete stale detections for image %d: %w", imageID, err)
		}

		if len(detections) > 0 {
			now := time.Now().Unix() // all detections in this batch get same timestamp
			for i := range detections {
				detections[i].ID = 0
				detections[i].ImageID = imageID
				detections[i].CreatedAt = now
				detections[i].UpdatedAt = now
			}
			if err := tx.Create(&detections).Error; err != nil {
				return fmt.Errorf("failed to insert detections for image %d: %w", imageID, err)
			}
		}

		imageUpdates := map[string]interface{}{
			"detection_count": len(detections),
			"has_detections":  len(detections) > 0,
		}
		if err := tx.Model(&models.Image{}).Where("id = ?", imageID).Updates(imageUpdates).Error; err != nil {
			return fmt.Errorf("failed to update detection count for image %d: %w", imageID, err)
		}

		return nil
	})
}

// MarkCompleted transitions a processing image to its terminal completed
// state. The condition keeps the transition exactly-once.
func (r *ImageRepository) MarkCompleted(imageID uint) error {
	now := time.Now().Unix()
	result := r.DB.Model(&models.Image{}).
		Where("id = ? AND processing_status = ?", imageID, database.StatusProcessing).
		Updates(map[string]interface{}{
			"processing_status": database.StatusCompleted,
			"processed_at":      &now,
			"error_message":     gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark image %d completed: %w", imageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("image %d was not in processing state", imageID)
	}
	return nil
}

// MarkFailed transitions an image to its terminal failed state with the
// captured error message. Already-terminal rows are left untouched.
func (r *ImageRepository) MarkFailed(imageID uint, message string) error {
	now := time.Now().Unix()
	result := r.DB.Model(&models.Image{}).
		Where("id = ? AND processing_status NOT IN ?", imageID,
			[]string{database.StatusCompleted, database.StatusFailed}).
		Updates(map[string]interface{}{
			"processing_status": database.StatusFailed,
			"processed_at":      &now,
			"error_message":     message,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark image %d failed: %w", imageID, result.Error)
	}
	return nil
}

// Delete removes an image record; its detections are removed by the
// cascade on the foreign key.
func (r *ImageRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Image{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete image %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List retrieves images matching the filter. Natural filename ordering is
// applied by the caller since it cannot be expressed in SQL.
func (r *ImageRepository) List(filter ImageFilter) ([]models.Image, error) {
	query := r.DB.Model(&models.Image{})

	if filter.Status != "" {
		query = query.Where("processing_status = ?", filter.Status)
	}
	if filter.CameraID != "" {
		query = query.Where("camera_id = ?", filter.CameraID)
	}

	switch filter.Sort {
	case database.SortFilenameAsc:
		query = query.Order("file_name ASC")
	case database.SortDateAsc:
		query = query.Order("captured_at ASC")
	case database.SortDateDesc, "":
		query = query.Order("captured_at DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var images []models.Image
	if err := query.Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}
