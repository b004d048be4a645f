package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Location represents a physical camera deployment using GORM.
// It corresponds to the 'locations' table. The camera identifier is the
// natural key. GeoPoint is derived from Latitude/Longitude on every
// insert and update so it always reflects the latest coordinates.
type Location struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	CameraID string `gorm:"uniqueIndex;not null" json:"camera_id"`

	Latitude  float64  `gorm:"not null" json:"latitude"`
	Longitude float64  `gorm:"not null" json:"longitude"`
	Altitude  *float64 `gorm:"" json:"altitude,omitempty"` // Nullable, meters

	// GeoPoint holds the derived WKT point, POINT(lon lat)
	GeoPoint string `gorm:"not null" json:"geo_point"`

	LocationName *string `gorm:"" json:"location_name,omitempty"`
	Country      *string `gorm:"" json:"country,omitempty"`
	HabitatType  *string `gorm:"" json:"habitat_type,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Location) TableName() string {
	return "locations"
}

// BeforeSave recomputes the WKT point from the current coordinates.
// Runs on both create and update, keeping GeoPoint in sync.
func (l *Location) BeforeSave(tx *gorm.DB) error {
	l.GeoPoint = fmt.Sprintf("POINT(%.8f %.8f)", l.Longitude, l.Latitude)
	return nil
}
