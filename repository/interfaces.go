package repository

import (
	"github.com/fernwick/camtrapbackend/media"
	"github.com/fernwick/camtrapbackend/models"
)

// SpeciesRepositoryInterface defines the methods for species catalog operations
type SpeciesRepositoryInterface interface {
	GetByID(id uint) (*models.Species, error)
	GetByScientificName(scientificName string) (*models.Species, error)
	// GetOrCreate resolves a species by its natural key, inserting a stub
	// row (scientific name only) when the species is not yet catalogued.
	// Returns true if a new row was created.
	GetOrCreate(scientificName string) (*models.Species, bool, error)
	Upsert(species *models.Species) error
	List(conservationStatus string, limit, offset int) ([]models.Species, error)
}

// LocationRepositoryInterface defines the methods for camera deployment operations
type LocationRepositoryInterface interface {
	GetByID(id uint) (*models.Location, error)
	GetByCameraID(cameraID string) (*models.Location, error)
	Upsert(location *models.Location) error
	List(activeOnly bool) ([]models.Location, error)
}

// ImageFilter narrows image listings for the dashboard read API
type ImageFilter struct {
	Status   string
	CameraID string
	Sort     string
	Limit    int
	Offset   int
}

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	GetByID(id uint) (*models.Image, error)
	GetByKey(s3Key string) (*models.Image, error)
	// EnsureExists creates the image row keyed by its storage key if absent.
	// The unique constraint on s3_key is the idempotency guard; returns true
	// if a new row was created.
	EnsureExists(image *models.Image) (bool, error)
	// ClaimProcessing performs the conditional pending -> processing
	// transition; a processing row last touched before staleBefore may be
	// re-claimed (resume). Returns false when the claim did not succeed.
	ClaimProcessing(imageID uint, staleBefore int64) (bool, error)
	UpdateMetadata(imageID uint, meta *media.Metadata, quality *media.Quality) error
	SetLocation(imageID uint, cameraID *string, locationID *uint) error
	// SaveDetectionResult replaces the image's detection set and updates the
	// denormalized detection_count / has_detections inside one transaction.
	SaveDetectionResult(imageID uint, detections []models.Detection) error
	MarkCompleted(imageID uint) error
	MarkFailed(imageID uint, message string) error
	Delete(id uint) error
	List(filter ImageFilter) ([]models.Image, error)
}

// DetectionFilter narrows detection listings for the dashboard read API
type DetectionFilter struct {
	DetectionType string
	SpeciesID     uint
	NeedsReview   *bool
	Limit         int
	Offset        int
}

// DetectionRepositoryInterface defines the methods for detection data operations
type DetectionRepositoryInterface interface {
	GetByID(id uint) (*models.Detection, error)
	ListByImageID(imageID uint) ([]models.Detection, error)
	List(filter DetectionFilter) ([]models.Detection, error)
	// UpdateVerification mutates the review flags, the only detection
	// fields that may change after creation.
	UpdateVerification(id uint, isVerified, isFalsePositive, needsReview *bool) error
}
