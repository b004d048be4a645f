package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/config"
	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/inference"
	"github.com/fernwick/camtrapbackend/media"
	"github.com/fernwick/camtrapbackend/models"
	"github.com/fernwick/camtrapbackend/repository"
	"github.com/fernwick/camtrapbackend/tracking"
)

// Orchestrator runs the full processing sequence for one uploaded image:
// record, claim, metadata, detection, per-animal classification, and the
// final atomic persistence of the detection set.
type Orchestrator struct {
	Cfg config.Config

	Images    repository.ImageRepositoryInterface
	Species   repository.SpeciesRepositoryInterface
	Locations repository.LocationRepositoryInterface

	Objects media.ObjectStore
	Assets  media.AssetStore // optional; nil disables crop persistence

	Detector   inference.Detector
	Classifier inference.Classifier

	Tracker tracking.Tracker
}

// NewOrchestrator wires the pipeline dependencies
func NewOrchestrator(
	cfg config.Config,
	images repository.ImageRepositoryInterface,
	species repository.SpeciesRepositoryInterface,
	locations repository.LocationRepositoryInterface,
	objects media.ObjectStore,
	assets media.AssetStore,
	detector inference.Detector,
	classifier inference.Classifier,
	tracker tracking.Tracker,
) *Orchestrator {
	return &Orchestrator{
		Cfg:        cfg,
		Images:     images,
		Species:    species,
		Locations:  locations,
		Objects:    objects,
		Assets:     assets,
		Detector:   detector,
		Classifier: classifier,
		Tracker:    tracker,
	}
}

// Process handles one notification end-to-end. A repeated delivery for an
// already-completed or already-failed key is a clean no-op. Image-level
// failures are recorded on the row and reported through the tracker; the
// returned error is for the worker log only.
func (o *Orchestrator) Process(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, o.Cfg.InvocationTimeout)
	defer cancel()

	// fast path: key already reached a terminal state
	if existing, err := o.Images.GetByKey(n.Key); err == nil {
		if database.IsTerminalStatus(existing.ProcessingStatus) {
			log.Printf("pipeline: skipping %s, already %s", n.Key, existing.ProcessingStatus)
			return nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up image for %s: %w", n.Key, err)
	}

	o.track(n.Key, tracking.StatusProcessing, nil)

	data, err := o.Objects.Get(n.Bucket, n.Key)
	if err != nil {
		o.track(n.Key, tracking.StatusFailed, map[string]interface{}{"error_message": err.Error()})
		return fmt.Errorf("failed to load object %s/%s: %w", n.Bucket, n.Key, err)
	}

	hash := sha256.Sum256(data)
	fileHash := hex.EncodeToString(hash[:])
	keyMeta := ParseStorageKey(n.Key)

	image := models.Image{
		S3Bucket:    n.Bucket,
		S3Key:       n.Key,
		FileName:    keyMeta.FileName,
		FileSize:    int64(len(data)),
		FileHash:    &fileHash,
		ProjectName: keyMeta.ProjectName,
		Client:      keyMeta.Client,
		Country:     keyMeta.Country,
		CameraID:    keyMeta.CameraID,
	}
	created, err := o.Images.EnsureExists(&image)
	if err != nil {
		o.track(n.Key, tracking.StatusFailed, map[string]interface{}{"error_message": err.Error()})
		return err
	}
	if !created && database.IsTerminalStatus(image.ProcessingStatus) {
		log.Printf("pipeline: skipping %s, already %s", n.Key, image.ProcessingStatus)
		return nil
	}

	// claim the row; a fresh processing claim by another worker wins, a
	// stale one (older than the invocation timeout) is resumed here
	staleBefore := time.Now().Add(-o.Cfg.InvocationTimeout).Unix()
	claimed, err := o.Images.ClaimProcessing(image.ID, staleBefore)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("pipeline: %s is owned by another worker, exiting", n.Key)
		return nil
	}

	return o.analyze(ctx, n, &image, data)
}

// analyze runs metadata extraction and the two-stage inference for a
// claimed image.
func (o *Orchestrator) analyze(ctx context.Context, n Notification, image *models.Image, data []byte) error {
	meta, err := media.ExtractMetadata(data)
	if err != nil {
		// undecodable pixels are a permanent, image-level failure
		return o.fail(n.Key, image.ID, fmt.Sprintf("failed to decode image: %v", err))
	}
	quality, qerr := media.ComputeQuality(data)
	if qerr != nil {
		log.Printf("pipeline: WARNING - quality scoring failed for %s: %v", n.Key, qerr)
	}
	if err := o.Images.UpdateMetadata(image.ID, meta, quality); err != nil {
		log.Printf("pipeline: WARNING - failed to store metadata for %s: %v", n.Key, err)
	}

	if image.CameraID != nil {
		if loc, err := o.Locations.GetByCameraID(*image.CameraID); err == nil {
			if err := o.Images.SetLocation(image.ID, image.CameraID, &loc.ID); err != nil {
				log.Printf("pipeline: WARNING - failed to link location for %s: %v", n.Key, err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("pipeline: WARNING - location lookup failed for %s: %v", n.Key, err)
		}
	}

	var detections []inference.Detection
	err = retryTransient(ctx, o.Cfg.AdapterRetries, o.Cfg.RetryBaseDelay, func() error {
		var derr error
		detections, derr = o.Detector.Detect(ctx, data, o.Cfg.DetectionThreshold)
		return derr
	})
	if err != nil {
		return o.fail(n.Key, image.ID, fmt.Sprintf("detection failed: %v", err))
	}

	rows := make([]models.Detection, len(detections))
	for i, det := range detections {
		rows[i] = models.Detection{
			DetectionType:      det.Class,
			BboxX:              det.BBox.X,
			BboxY:              det.BBox.Y,
			BboxWidth:          det.BBox.W,
			BboxHeight:         det.BBox.H,
			DetectorConfidence: det.Confidence,
			NeedsReview:        true,
		}
	}

	// species classification runs concurrently across the animal crops
	g, gctx := errgroup.WithContext(ctx)
	for i := range rows {
		if detections[i].Class != inference.ClassAnimal {
			continue
		}
		i := i
		g.Go(func() error {
			return o.classifyDetection(gctx, data, detections[i], &rows[i])
		})
	}
	if err := g.Wait(); err != nil {
		return o.fail(n.Key, image.ID, fmt.Sprintf("classification failed: %v", err))
	}

	err = retryTransient(ctx, 1, o.Cfg.RetryBaseDelay, func() error {
		return o.Images.SaveDetectionResult(image.ID, rows)
	})
	if err != nil {
		return o.fail(n.Key, image.ID, fmt.Sprintf("failed to persist detections: %v", err))
	}

	if err := o.Images.MarkCompleted(image.ID); err != nil {
		return fmt.Errorf("failed to complete image %s: %w", n.Key, err)
	}

	hasAnimals := false
	for _, det := range detections {
		if det.Class == inference.ClassAnimal {
			hasAnimals = true
			break
		}
	}
	o.track(n.Key, tracking.StatusComplete, map[string]interface{}{
		"image_id":        image.ID,
		"detection_count": len(rows),
		"has_animals":     hasAnimals,
	})
	log.Printf("pipeline: completed %s with %d detections", n.Key, len(rows))
	return nil
}

// classifyDetection crops one animal region, ranks species candidates,
// and fills the detection row in place.
func (o *Orchestrator) classifyDetection(ctx context.Context, data []byte, det inference.Detection, row *models.Detection) error {
	crop, err := media.CropRegion(data, det.BBox.X, det.BBox.Y, det.BBox.W, det.BBox.H)
	if err != nil {
		return fmt.Errorf("failed to crop detection region: %w", err)
	}

	var predictions []inference.Prediction
	err = retryTransient(ctx, o.Cfg.AdapterRetries, o.Cfg.RetryBaseDelay, func() error {
		var cerr error
		predictions, cerr = o.Classifier.Classify(ctx, crop, o.Cfg.ClassificationThreshold)
		return cerr
	})
	if err != nil {
		return err
	}

	if len(predictions) > 0 {
		top := predictions[0]
		species, created, err := o.Species.GetOrCreate(top.ScientificName)
		if err != nil {
			return err
		}
		if created {
			log.Printf("pipeline: catalogued new species %s", top.ScientificName)
		}
		row.SpeciesID = &species.ID
		confidence := top.Confidence
		row.ClassifierConfidence = &confidence

		if top5, err := json.Marshal(predictions); err == nil {
			top5JSON := string(top5)
			row.SpeciesTop5 = &top5JSON
		}
	}

	if o.Assets != nil {
		name := fmt.Sprintf("%s.jpg", uuid.New().String())
		if cropPath, err := o.Assets.Save(media.AssetTypeCrop, name, bytes.NewReader(crop)); err == nil {
			row.CropPath = &cropPath
		} else {
			// crops are a convenience artifact, not part of the result
			log.Printf("pipeline: WARNING - failed to save crop: %v", err)
		}
	}
	return nil
}

// fail records an image-level failure and mirrors it to the tracker.
func (o *Orchestrator) fail(key string, imageID uint, message string) error {
	if err := o.Images.MarkFailed(imageID, message); err != nil {
		log.Printf("pipeline: ERROR - failed to mark %s failed: %v", key, err)
	}
	o.track(key, tracking.StatusFailed, map[string]interface{}{"error_message": message})
	return fmt.Errorf("processing %s: %s", key, message)
}

func (o *Orchestrator) track(key, status string, detail map[string]interface{}) {
	if o.Tracker == nil {
		return
	}
	if err := o.Tracker.SetStatus(key, status, detail); err != nil {
		log.Printf("pipeline: WARNING - tracking update failed for %s: %v", key, err)
	}
}
