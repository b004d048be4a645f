package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func seedImage(t *testing.T, repo *ImageRepository, key string) *models.Image {
	t.Helper()
	image := models.Image{
		S3Bucket: "camtrap-uploads",
		S3Key:    key,
		FileName: filepath.Base(key),
		FileSize: 1024,
	}
	created, err := repo.EnsureExists(&image)
	require.NoError(t, err)
	require.True(t, created)
	return &image
}
