package models

// Detection represents one bounding-box result in an image using GORM.
// It corresponds to the 'detections' table. SpeciesID is only ever set
// for detections of type 'animal'; person/vehicle rows keep it null
// along with ClassifierConfidence. The bounding box is normalized to
// [0,1] relative to the image dimensions.
type Detection struct {
	ID      uint `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID uint `gorm:"not null;index" json:"image_id"`

	SpeciesID *uint    `gorm:"index" json:"species_id,omitempty"` // Nullable FK, animal detections only
	Species   *Species `gorm:"foreignKey:SpeciesID" json:"species,omitempty"`

	DetectionType string `gorm:"not null;index" json:"detection_type"` // animal, person, vehicle

	BboxX      float64 `gorm:"not null" json:"bbox_x"`
	BboxY      float64 `gorm:"not null" json:"bbox_y"`
	BboxWidth  float64 `gorm:"not null" json:"bbox_width"`
	BboxHeight float64 `gorm:"not null" json:"bbox_height"`

	DetectorConfidence   float64  `gorm:"not null" json:"detector_confidence"`
	ClassifierConfidence *float64 `gorm:"" json:"classifier_confidence,omitempty"` // Nullable, null when classification not run

	// SpeciesTop5 holds the ranked candidate list as JSON, length <= 5
	SpeciesTop5 *string `gorm:"" json:"species_top5,omitempty"` // Nullable

	CropPath *string `gorm:"" json:"crop_path,omitempty"` // Nullable, saved crop asset for review

	IsVerified      bool `gorm:"not null;default:false" json:"is_verified"`
	IsFalsePositive bool `gorm:"not null;default:false" json:"is_false_positive"`
	NeedsReview     bool `gorm:"not null;default:true" json:"needs_review"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Detection) TableName() string {
	return "detections"
}
