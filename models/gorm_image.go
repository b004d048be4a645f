package models

// Image represents one camera-trap photo in the database using GORM.
// It corresponds to the 'images' table. S3Key is the natural key and the
// idempotency guard: re-processing the same key must never create a
// second row. DetectionCount and HasDetections are denormalized and are
// maintained inside the same transaction that inserts detections.
type Image struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	S3Bucket string `gorm:"not null" json:"s3_bucket"`
	S3Key    string `gorm:"uniqueIndex;not null" json:"s3_key"`

	FileName string  `gorm:"not null" json:"file_name"`
	FileSize int64   `gorm:"not null" json:"file_size"`
	FileHash *string `gorm:"index" json:"file_hash,omitempty"` // SHA-256, Nullable

	Width  *int    `gorm:"" json:"width,omitempty"`  // Nullable
	Height *int    `gorm:"" json:"height,omitempty"` // Nullable
	Format *string `gorm:"" json:"format,omitempty"` // Nullable, e.g. "jpeg"

	// key-path metadata, see pipeline.ParseStorageKey
	ProjectName *string `gorm:"" json:"project_name,omitempty"`
	Client      *string `gorm:"" json:"client,omitempty"`
	Country     *string `gorm:"" json:"country,omitempty"`

	CameraID   *string   `gorm:"index" json:"camera_id,omitempty"`   // Nullable
	LocationID *uint     `gorm:"index" json:"location_id,omitempty"` // Nullable FK, null when camera unregistered
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	CapturedAt *int64 `gorm:"index" json:"captured_at,omitempty"` // Nullable, Unix timestamp from EXIF
	UploadedAt int64  `gorm:"not null" json:"uploaded_at"`        // Unix timestamp, system clock

	GPSLatitude  *float64 `gorm:"" json:"gps_latitude,omitempty"`  // Nullable
	GPSLongitude *float64 `gorm:"" json:"gps_longitude,omitempty"` // Nullable
	GPSAltitude  *float64 `gorm:"" json:"gps_altitude,omitempty"`  // Nullable

	CameraMake  *string `gorm:"" json:"camera_make,omitempty"`  // Nullable
	CameraModel *string `gorm:"" json:"camera_model,omitempty"` // Nullable

	BrightnessScore *float64 `gorm:"" json:"brightness_score,omitempty"` // Nullable, 0-1
	SharpnessScore  *float64 `gorm:"" json:"sharpness_score,omitempty"`  // Nullable, 0-1
	QualityScore    *float64 `gorm:"" json:"quality_score,omitempty"`    // Nullable, 0-1

	ProcessingStatus string  `gorm:"not null;default:pending;index" json:"processing_status"`
	ErrorMessage     *string `gorm:"" json:"error_message,omitempty"` // Nullable, set on failure
	ProcessedAt      *int64  `gorm:"" json:"processed_at,omitempty"`  // Nullable, Unix timestamp

	DetectionCount int  `gorm:"not null;default:0" json:"detection_count"`
	HasDetections  bool `gorm:"not null;default:false" json:"has_detections"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp

	// Relationships
	Detections []Detection `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"detections,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
