package pipeline

import (
	"path"
	"strings"
)

// Notification identifies one uploaded object to process.
type Notification struct {
	Bucket string
	Key    string
}

// KeyMetadata holds the deployment attributes encoded in a storage key.
// Uploads follow project/country/client/camera-id/YYYY-MM-DD/filename;
// shorter keys yield a partial record, which is still processable.
type KeyMetadata struct {
	ProjectName *string
	Country     *string
	Client      *string
	CameraID    *string
	FileName    string
}

// ParseStorageKey extracts deployment metadata from an object key. The
// filename is always the last segment; the leading segments are taken in
// order and any missing ones stay nil.
func ParseStorageKey(key string) KeyMetadata {
	meta := KeyMetadata{FileName: path.Base(key)}

	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) < 2 {
		return meta
	}
	// drop filename and, when present, the date directory before it
	segments := parts[:len(parts)-1]
	if len(segments) >= 5 {
		segments = segments[:len(segments)-1]
	}

	fields := []**string{&meta.ProjectName, &meta.Country, &meta.Client, &meta.CameraID}
	for i, segment := range segments {
		if i >= len(fields) {
			break
		}
		s := segment
		*fields[i] = &s
	}
	return meta
}
