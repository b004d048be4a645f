package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/models"
)

// SpeciesRepository handles database operations for the species catalog
type SpeciesRepository struct {
	DB *gorm.DB
}

// NewSpeciesRepository creates a new instance of SpeciesRepository
func NewSpeciesRepository(db *gorm.DB) *SpeciesRepository {
	return &SpeciesRepository{DB: db}
}

// GetByID retrieves a species by its primary key
func (r *SpeciesRepository) GetByID(id uint) (*models.Species, error) {
	var species models.Species
	err := r.DB.First(&species, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get species %d: %w", id, err)
	}
	return &species, nil
}

// GetByScientificName retrieves a species by its natural key
func (r *SpeciesRepository) GetByScientificName(scientificName string) (*models.Species, error) {
	var species models.Species
	err := r.DB.Where("scientific_name = ?", scientificName).First(&species).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get species by name %s: %w", scientificName, err)
	}
	return &species, nil
}

// GetOrCreate resolves a species by scientific name, inserting a stub row
// holding only the natural key when the classifier reports a species not
// yet in the catalog. Descriptive fields are enriched later by seeding.
// Returns true if a new row was created.
//
// Detections within one image are classified concurrently, so two
// goroutines can race the stub insert for the same unseen name. Whichever
// insert loses on the unique index just resolves to the winner's row.
func (r *SpeciesRepository) GetOrCreate(scientificName string) (*models.Species, bool, error) {
	now := time.Now().Unix()
	species := models.Species{
		ScientificName: scientificName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result := r.DB.Where(models.Species{ScientificName: scientificName}).FirstOrCreate(&species)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			existing, err := r.GetByScientificName(scientificName)
			if err != nil {
				return nil, false, fmt.Errorf("failed to load species %s after insert race: %w", scientificName, err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to get or create species %s: %w", scientificName, result.Error)
	}
	return &species, result.RowsAffected > 0, nil
}

// Upsert creates or updates a species keyed by scientific name. Used by
// the catalog seeding process; the natural key itself is immutable.
func (r *SpeciesRepository) Upsert(species *models.Species) error {
	now := time.Now().Unix()

	existing, err := r.GetByScientificName(species.ScientificName)
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	if existing != nil {
		species.ID = existing.ID
		species.CreatedAt = existing.CreatedAt
	} else {
		species.CreatedAt = now
	}
	species.UpdatedAt = now

	if err := r.DB.Save(species).Error; err != nil {
		return fmt.Errorf("failed to upsert species %s: %w", species.ScientificName, err)
	}
	return nil
}

// List retrieves catalog entries, optionally filtered by conservation status
func (r *SpeciesRepository) List(conservationStatus string, limit, offset int) ([]models.Species, error) {
	query := r.DB.Model(&models.Species{}).Order("scientific_name ASC")

	if conservationStatus != "" {
		query = query.Where("conservation_status = ?", conservationStatus)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var species []models.Species
	if err := query.Find(&species).Error; err != nil {
		return nil, fmt.Errorf("failed to list species: %w", err)
	}
	return species, nil
}
