package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
)

func TestEnsureExistsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)

	first := seedImage(t, repo, "wildwatch/kenya/acme/CAM-001/2026-08-20/IMG_0001.JPG")

	duplicate := models.Image{
		S3Bucket: "camtrap-uploads",
		S3Key:    first.S3Key,
		FileName: first.FileName,
		FileSize: 2048,
	}
	created, err := repo.EnsureExists(&duplicate)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, duplicate.ID)

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureExistsAbsorbsInsertRace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)

	key := "wildwatch/kenya/acme/CAM-008/2026-08-20/IMG_0014.JPG"

	// a second worker wins the insert in the window between the lookup and
	// the insert of FirstOrCreate
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("concurrent_ingest", func(tx *gorm.DB) {
		if fired {
			return
		}
		fired = true
		now := time.Now().Unix()
		require.NoError(t, db.Exec(
			`INSERT INTO images
				(s3_bucket, s3_key, file_name, file_size, uploaded_at, processing_status,
				 detection_count, has_detections, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
			"camtrap-uploads", key, "IMG_0014.JPG", 512, now, database.StatusProcessing, now, now).Error)
	})
	require.NoError(t, err)
	defer db.Callback().Create().Remove("concurrent_ingest")

	image := models.Image{
		S3Bucket: "camtrap-uploads",
		S3Key:    key,
		FileName: "IMG_0014.JPG",
		FileSize: 2048,
	}
	created, err := repo.EnsureExists(&image)
	require.NoError(t, err)
	assert.False(t, created)

	// the loser resolves to the winner's row, not an error
	assert.NotZero(t, image.ID)
	assert.Equal(t, database.StatusProcessing, image.ProcessingStatus)
	assert.Equal(t, int64(512), image.FileSize)

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestClaimProcessing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-001/2026-08-20/IMG_0002.JPG")

	staleBefore := time.Now().Add(-5 * time.Minute).Unix()

	claimed, err := repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	assert.True(t, claimed)

	// a fresh processing row belongs to the first claimant
	claimed, err = repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusProcessing, stored.ProcessingStatus)
}

func TestClaimProcessingResumesStaleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-001/2026-08-20/IMG_0003.JPG")

	staleBefore := time.Now().Add(-5 * time.Minute).Unix()
	claimed, err := repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	require.True(t, claimed)

	// age the row past the stale horizon, as if its worker died mid-flight
	old := time.Now().Add(-time.Hour).Unix()
	require.NoError(t, db.Model(&models.Image{}).Where("id = ?", image.ID).
		UpdateColumn("updated_at", old).Error)

	claimed, err = repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimProcessingSkipsTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-001/2026-08-20/IMG_0004.JPG")

	staleBefore := time.Now().Add(-5 * time.Minute).Unix()
	claimed, err := repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.MarkCompleted(image.ID))

	claimed, err = repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestSaveDetectionResultCountInvariant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-002/2026-08-20/IMG_0005.JPG")

	batch := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.3, BboxHeight: 0.3, DetectorConfidence: 0.92, NeedsReview: true},
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.5, BboxY: 0.4, BboxWidth: 0.2, BboxHeight: 0.2, DetectorConfidence: 0.71, NeedsReview: true},
		{DetectionType: database.DetectionTypePerson, BboxX: 0.0, BboxY: 0.6, BboxWidth: 0.2, BboxHeight: 0.4, DetectorConfidence: 0.65, NeedsReview: true},
	}
	require.NoError(t, repo.SaveDetectionResult(image.ID, batch))

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.DetectionCount)
	assert.True(t, stored.HasDetections)

	var rows int64
	require.NoError(t, db.Model(&models.Detection{}).Where("image_id = ?", image.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
}

func TestSaveDetectionResultReplacesExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-002/2026-08-20/IMG_0006.JPG")

	first := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.3, BboxHeight: 0.3, DetectorConfidence: 0.9},
		{DetectionType: database.DetectionTypeVehicle, BboxX: 0.4, BboxY: 0.4, BboxWidth: 0.3, BboxHeight: 0.3, DetectorConfidence: 0.8},
	}
	require.NoError(t, repo.SaveDetectionResult(image.ID, first))

	// a resumed invocation writes a fresh result set
	second := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.2, BboxY: 0.2, BboxWidth: 0.2, BboxHeight: 0.2, DetectorConfidence: 0.95},
	}
	require.NoError(t, repo.SaveDetectionResult(image.ID, second))

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DetectionCount)

	var rows []models.Detection
	require.NoError(t, db.Where("image_id = ?", image.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.95, rows[0].DetectorConfidence)
}

func TestSaveDetectionResultEmptySet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-003/2026-08-20/IMG_0007.JPG")

	require.NoError(t, repo.SaveDetectionResult(image.ID, nil))

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.DetectionCount)
	assert.False(t, stored.HasDetections)
}

func TestSaveDetectionResultRollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-003/2026-08-20/IMG_0015.JPG")

	missing := uint(9999)
	batch := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.3, BboxHeight: 0.3, DetectorConfidence: 0.9},
		{DetectionType: database.DetectionTypePerson, BboxX: 0.5, BboxY: 0.5, BboxWidth: 0.2, BboxHeight: 0.2, DetectorConfidence: 0.8},
		// dangling species FK makes the batch insert fail partway through
		{DetectionType: database.DetectionTypeAnimal, SpeciesID: &missing, BboxX: 0.2, BboxY: 0.6, BboxWidth: 0.2, BboxHeight: 0.2, DetectorConfidence: 0.7},
	}
	err := repo.SaveDetectionResult(image.ID, batch)
	require.Error(t, err)

	// an interrupted batch leaves nothing behind
	var rows int64
	require.NoError(t, db.Model(&models.Detection{}).Where("image_id = ?", image.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.DetectionCount)
	assert.False(t, stored.HasDetections)
	assert.Equal(t, database.StatusPending, stored.ProcessingStatus)
}

func TestSaveDetectionResultFailedReplaceKeepsExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-003/2026-08-20/IMG_0016.JPG")

	good := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.4, BboxHeight: 0.4, DetectorConfidence: 0.93},
	}
	require.NoError(t, repo.SaveDetectionResult(image.ID, good))

	missing := uint(9999)
	bad := []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, SpeciesID: &missing, BboxX: 0.3, BboxY: 0.3, BboxWidth: 0.2, BboxHeight: 0.2, DetectorConfidence: 0.6},
	}
	require.Error(t, repo.SaveDetectionResult(image.ID, bad))

	// the failed replacement must not have deleted the previous result set
	var rows []models.Detection
	require.NoError(t, db.Where("image_id = ?", image.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.93, rows[0].DetectorConfidence)

	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DetectionCount)
	assert.True(t, stored.HasDetections)
}

func TestMarkCompletedRequiresProcessing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-003/2026-08-20/IMG_0008.JPG")

	// still pending, the transition must be rejected
	err := repo.MarkCompleted(image.ID)
	require.Error(t, err)

	staleBefore := time.Now().Add(-5 * time.Minute).Unix()
	claimed, err := repo.ClaimProcessing(image.ID, staleBefore)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkCompleted(image.ID))
	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, stored.ProcessingStatus)
	require.NotNil(t, stored.ProcessedAt)

	// terminal states are reached exactly once
	err = repo.MarkCompleted(image.ID)
	require.Error(t, err)
}

func TestMarkFailedLeavesTerminalUntouched(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-004/2026-08-20/IMG_0009.JPG")

	require.NoError(t, repo.MarkFailed(image.ID, "detection failed: service unavailable"))
	stored, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusFailed, stored.ProcessingStatus)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "service unavailable")

	completed := seedImage(t, repo, "wildwatch/kenya/acme/CAM-004/2026-08-20/IMG_0010.JPG")
	staleBefore := time.Now().Add(-5 * time.Minute).Unix()
	claimed, err := repo.ClaimProcessing(completed.ID, staleBefore)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.MarkCompleted(completed.ID))

	require.NoError(t, repo.MarkFailed(completed.ID, "late failure"))
	stored, err = repo.GetByID(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, stored.ProcessingStatus)
}

func TestDeleteCascadesToDetections(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	image := seedImage(t, repo, "wildwatch/kenya/acme/CAM-005/2026-08-20/IMG_0011.JPG")

	require.NoError(t, repo.SaveDetectionResult(image.ID, []models.Detection{
		{DetectionType: database.DetectionTypeAnimal, BboxX: 0.1, BboxY: 0.1, BboxWidth: 0.5, BboxHeight: 0.5, DetectorConfidence: 0.88},
	}))

	require.NoError(t, repo.Delete(image.ID))

	var rows int64
	require.NoError(t, db.Model(&models.Detection{}).Where("image_id = ?", image.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	_, err := repo.GetByID(image.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListFiltersByStatusAndCamera(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)

	a := seedImage(t, repo, "wildwatch/kenya/acme/CAM-006/2026-08-20/IMG_0012.JPG")
	seedImage(t, repo, "wildwatch/kenya/acme/CAM-007/2026-08-20/IMG_0013.JPG")

	staleBefore := time.Now().Add(-5 * time.Minute).Unix()
	claimed, err := repo.ClaimProcessing(a.ID, staleBefore)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.MarkCompleted(a.ID))

	camera := "CAM-006"
	require.NoError(t, repo.SetLocation(a.ID, &camera, nil))

	completed, err := repo.List(ImageFilter{Status: database.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)

	byCamera, err := repo.List(ImageFilter{CameraID: camera})
	require.NoError(t, err)
	require.Len(t, byCamera, 1)
	assert.Equal(t, a.ID, byCamera[0].ID)

	all, err := repo.List(ImageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
