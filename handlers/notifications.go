package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/fernwick/camtrapbackend/pipeline"
)

// s3Event mirrors the bucket notification shape emitted by S3-compatible
// object stores. Only the fields the pipeline needs are decoded.
type s3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

type NotificationHandler struct {
	Processor *pipeline.Processor
}

// IngestNotification accepts an upload event and enqueues each referenced
// object for processing. Repeated deliveries are harmless: duplicates are
// dropped in the queue and re-processing a finished key is a no-op.
func (nh *NotificationHandler) IngestNotification(w http.ResponseWriter, r *http.Request) {
	var event s3Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid notification body: "+err.Error())
		return
	}
	if len(event.Records) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "empty_event", "Notification contains no records")
		return
	}

	accepted := 0
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if bucket == "" || key == "" {
			continue
		}
		// object keys arrive URL-encoded in bucket events
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		key = strings.TrimPrefix(key, "/")

		if nh.Processor.QueueNotification(pipeline.Notification{Bucket: bucket, Key: key}) {
			accepted++
		}
	}

	log.Printf("Notification ingest: accepted %d of %d record(s)", accepted, len(event.Records))
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"received": len(event.Records),
		"accepted": accepted,
	})
}
