package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
)

func seedDetections(t *testing.T, db *gorm.DB) (*models.Image, []models.Detection) {
	t.Helper()
	imageRepo := NewImageRepository(db)
	image := seedImage(t, imageRepo, "wildwatch/kenya/acme/CAM-009/2026-08-21/IMG_0100.JPG")

	batch := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.4, BboxHeight: 0.4, DetectorConfidence: 0.93, NeedsReview: true},
		{DetectionType: database.DetectionTypePerson, BboxX: 0.6, BboxY: 0.2, BboxWidth: 0.2, BboxHeight: 0.5, DetectorConfidence: 0.77, NeedsReview: true},
	}
	require.NoError(t, imageRepo.SaveDetectionResult(image.ID, batch))

	var rows []models.Detection
	require.NoError(t, db.Where("image_id = ?", image.ID).Order("detector_confidence DESC").Find(&rows).Error)
	require.Len(t, rows, 2)
	return image, rows
}

func TestListByImageIDOrdersByConfidence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDetectionRepository(db)
	image, _ := seedDetections(t, db)

	detections, err := repo.ListByImageID(image.ID)
	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, 0.93, detections[0].DetectorConfidence)
	assert.Equal(t, 0.77, detections[1].DetectorConfidence)
}

func TestListFiltersByType(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDetectionRepository(db)
	seedDetections(t, db)

	animals, err := repo.List(DetectionFilter{DetectionType: database.DetectionTypeAnimal})
	require.NoError(t, err)
	require.Len(t, animals, 1)
	assert.Equal(t, database.DetectionTypeAnimal, animals[0].DetectionType)
}

func TestUpdateVerificationPartial(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDetectionRepository(db)
	_, rows := seedDetections(t, db)

	verified := true
	reviewed := false
	require.NoError(t, repo.UpdateVerification(rows[0].ID, &verified, nil, &reviewed))

	stored, err := repo.GetByID(rows[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.False(t, stored.NeedsReview)
	// untouched flag keeps its default
	assert.False(t, stored.IsFalsePositive)

	// the other detection stays in its initial review state
	other, err := repo.GetByID(rows[1].ID)
	require.NoError(t, err)
	assert.False(t, other.IsVerified)
	assert.True(t, other.NeedsReview)
}

func TestUpdateVerificationNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDetectionRepository(db)

	flag := true
	err := repo.UpdateVerification(12345, &flag, nil, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
