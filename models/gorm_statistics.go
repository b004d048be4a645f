package models

// LocationStatistic is a materialized per-location aggregate row.
// It corresponds to the 'location_statistics' table and is rebuilt by
// database.RefreshStatistics; it may lag behind the base tables.
type LocationStatistic struct {
	LocationID uint   `gorm:"primaryKey" json:"location_id"`
	CameraID   string `gorm:"not null;index" json:"camera_id"`

	TotalImages      int `gorm:"not null" json:"total_images"`
	TotalDetections  int `gorm:"not null" json:"total_detections"`
	AnimalDetections int `gorm:"not null" json:"animal_detections"`
	SpeciesCount     int `gorm:"not null" json:"species_count"`

	LastCapturedAt *int64 `gorm:"" json:"last_captured_at,omitempty"` // Nullable, Unix timestamp
	RefreshedAt    int64  `gorm:"not null" json:"refreshed_at"`       // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (LocationStatistic) TableName() string {
	return "location_statistics"
}

// SpeciesStatistic is a materialized per-species aggregate row.
// It corresponds to the 'species_statistics' table and is rebuilt by
// database.RefreshStatistics; it may lag behind the base tables.
type SpeciesStatistic struct {
	SpeciesID      uint    `gorm:"primaryKey" json:"species_id"`
	ScientificName string  `gorm:"not null;index" json:"scientific_name"`
	CommonName     *string `gorm:"" json:"common_name,omitempty"`
	ConservationStatus *string `gorm:"index" json:"conservation_status,omitempty"`

	TotalDetections int      `gorm:"not null" json:"total_detections"`
	ImageCount      int      `gorm:"not null" json:"image_count"`
	LocationCount   int      `gorm:"not null" json:"location_count"`
	AvgConfidence   *float64 `gorm:"" json:"avg_confidence,omitempty"` // Nullable, mean classifier confidence

	FirstSeenAt *int64 `gorm:"" json:"first_seen_at,omitempty"` // Nullable, Unix timestamp
	LastSeenAt  *int64 `gorm:"" json:"last_seen_at,omitempty"`  // Nullable, Unix timestamp
	RefreshedAt int64  `gorm:"not null" json:"refreshed_at"`    // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (SpeciesStatistic) TableName() string {
	return "species_statistics"
}
