package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwick/camtrapbackend/models"
)

func TestLocationUpsertDerivesGeoPoint(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLocationRepository(db)

	location := models.Location{
		CameraID:  "CAM-042",
		Latitude:  -1.2921,
		Longitude: 36.8219,
		IsActive:  true,
	}
	require.NoError(t, repo.Upsert(&location))
	assert.Equal(t, "POINT(36.82190000 -1.29210000)", location.GeoPoint)

	// moving the camera recomputes the point on the same row
	location.Latitude = -1.3000
	require.NoError(t, repo.Upsert(&location))

	stored, err := repo.GetByCameraID("CAM-042")
	require.NoError(t, err)
	assert.Equal(t, "POINT(36.82190000 -1.30000000)", stored.GeoPoint)

	var count int64
	require.NoError(t, db.Model(&models.Location{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLocationListActiveOnly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLocationRepository(db)

	require.NoError(t, repo.Upsert(&models.Location{CameraID: "CAM-100", Latitude: 1, Longitude: 1, IsActive: true}))
	require.NoError(t, repo.Upsert(&models.Location{CameraID: "CAM-101", Latitude: 2, Longitude: 2, IsActive: false}))

	active, err := repo.List(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "CAM-100", active[0].CameraID)

	all, err := repo.List(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
