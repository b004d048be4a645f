package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/models"
	"github.com/fernwick/camtrapbackend/repository"
)

type ImageHandler struct {
	ImageRepo     repository.ImageRepositoryInterface
	DetectionRepo repository.DetectionRepositoryInterface
}

// ListImages returns images filtered by status and camera, paginated.
// Natural filename ordering cannot be expressed in SQL, so for that sort
// the rows are fetched and ordered here before pagination.
func (ih *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	status := query.Get("status")
	if status != "" && !database.IsTerminalStatus(status) &&
		status != database.StatusPending && status != database.StatusProcessing {
		WriteAPIError(w, http.StatusBadRequest, "invalid_status", "Unknown processing status: "+status)
		return
	}

	sortOrder := query.Get("sort")
	if sortOrder == "" {
		sortOrder = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(sortOrder) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_sort", "Unknown sort order: "+sortOrder)
		return
	}

	filter := repository.ImageFilter{
		Status:   status,
		CameraID: query.Get("camera_id"),
		Sort:     sortOrder,
		Limit:    parseIntQuery(r, "limit", 100),
		Offset:   parseIntQuery(r, "offset", 0),
	}

	if sortOrder == database.SortFilenameNat {
		// pagination happens after the in-memory natural sort
		unpaged := filter
		unpaged.Limit = 0
		unpaged.Offset = 0
		images, err := ih.ImageRepo.List(unpaged)
		if err != nil {
			log.Printf("Error listing images: %v", err)
			WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve images")
			return
		}
		sort.SliceStable(images, func(i, j int) bool {
			return natsort.Compare(images[i].FileName, images[j].FileName)
		})
		images = paginateImages(images, filter.Offset, filter.Limit)
		writeJSON(w, http.StatusOK, images)
		return
	}

	images, err := ih.ImageRepo.List(filter)
	if err != nil {
		log.Printf("Error listing images: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "Failed to retrieve images")
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}

func paginateImages(images []models.Image, offset, limit int) []models.Image {
	if offset >= len(images) {
		return []models.Image{}
	}
	images = images[offset:]
	if limit > 0 && limit < len(images) {
		images = images[:limit]
	}
	return images
}

// GetImage returns one image with its detection set
func (ih *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "image_id")
	imageID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid image ID format")
		return
	}

	image, err := ih.ImageRepo.GetByID(uint(imageID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
		} else {
			log.Printf("Error getting image %d: %v", imageID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_failed", "Failed to retrieve image")
		}
		return
	}

	detections, err := ih.DetectionRepo.ListByImageID(image.ID)
	if err != nil {
		log.Printf("Error fetching detections for image %d: %v", image.ID, err)
	} else {
		image.Detections = detections
	}

	writeJSON(w, http.StatusOK, image)
}

// DeleteImage removes an image row; its detections go with it via the
// cascade on the foreign key.
func (ih *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "image_id")
	imageID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid image ID format")
		return
	}

	if err := ih.ImageRepo.Delete(uint(imageID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Image not found")
		} else {
			log.Printf("Error deleting image %d: %v", imageID, err)
			WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete image")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
