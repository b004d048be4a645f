// media/types.go
package media

type AssetType string

const (
	AssetTypeCrop    AssetType = "crop"
	AssetTypeUnknown AssetType = "unknown"
)

// Metadata holds EXIF and dimension information extracted from an image.
// Every field is optional: camera traps routinely emit images with
// missing or partial EXIF blocks, which is degraded-but-valid.
type Metadata struct {
	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
	Format *string `json:"format,omitempty"`

	CapturedAt   *int64   `json:"captured_at,omitempty"` // Unix timestamp
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
	GPSAltitude  *float64 `json:"gps_altitude,omitempty"`
	CameraMake   *string  `json:"camera_make,omitempty"`
	CameraModel  *string  `json:"camera_model,omitempty"`
}

// Quality holds simple image quality signals, all in [0,1].
type Quality struct {
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
	Overall    float64 `json:"overall"`
}
