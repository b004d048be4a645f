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

func TestGetOrCreateInsertsStub(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSpeciesRepository(db)

	species, created, err := repo.GetOrCreate("Panthera pardus")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, species.ID)
	assert.Equal(t, "Panthera pardus", species.ScientificName)
	// stub rows hold nothing but the natural key
	assert.Nil(t, species.CommonName)
	assert.Nil(t, species.ConservationStatus)

	again, created, err := repo.GetOrCreate("Panthera pardus")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, species.ID, again.ID)
}

func TestGetOrCreateAbsorbsInsertRace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSpeciesRepository(db)

	// a concurrent classification inserts the same stub in the window
	// between the lookup and the insert of FirstOrCreate
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("concurrent_stub", func(tx *gorm.DB) {
		if fired {
			return
		}
		fired = true
		now := time.Now().Unix()
		require.NoError(t, db.Exec(
			"INSERT INTO species (scientific_name, created_at, updated_at) VALUES (?, ?, ?)",
			"Panthera onca", now, now).Error)
	})
	require.NoError(t, err)
	defer db.Callback().Create().Remove("concurrent_stub")

	species, created, err := repo.GetOrCreate("Panthera onca")
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, species)
	assert.NotZero(t, species.ID)
	assert.Equal(t, "Panthera onca", species.ScientificName)

	var count int64
	require.NoError(t, db.Model(&models.Species{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertEnrichesStub(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSpeciesRepository(db)

	stub, created, err := repo.GetOrCreate("Loxodonta africana")
	require.NoError(t, err)
	require.True(t, created)

	common := "African bush elephant"
	status := database.ConservationEN
	enriched := models.Species{
		ScientificName:     "Loxodonta africana",
		CommonName:         &common,
		ConservationStatus: &status,
	}
	require.NoError(t, repo.Upsert(&enriched))

	// the upsert must land on the stub row, not create a second one
	assert.Equal(t, stub.ID, enriched.ID)
	assert.Equal(t, stub.CreatedAt, enriched.CreatedAt)

	stored, err := repo.GetByScientificName("Loxodonta africana")
	require.NoError(t, err)
	require.NotNil(t, stored.CommonName)
	assert.Equal(t, common, *stored.CommonName)

	var count int64
	require.NoError(t, db.Model(&models.Species{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSpeciesListFiltersByConservation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSpeciesRepository(db)

	en := database.ConservationEN
	lc := database.ConservationLC
	require.NoError(t, repo.Upsert(&models.Species{ScientificName: "Panthera leo", ConservationStatus: &en}))
	require.NoError(t, repo.Upsert(&models.Species{ScientificName: "Sus scrofa", ConservationStatus: &lc}))

	endangered, err := repo.List(database.ConservationEN, 0, 0)
	require.NoError(t, err)
	require.Len(t, endangered, 1)
	assert.Equal(t, "Panthera leo", endangered[0].ScientificName)

	all, err := repo.List("", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSpeciesGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSpeciesRepository(db)

	_, err := repo.GetByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
