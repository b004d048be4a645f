package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/fernwick/camtrapbackend/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// RefreshStatistics recomputes the materialized per-location and
// per-species aggregate tables from the base tables. It runs on demand
// or on a schedule, never per write: the aggregates are allowed to lag
// behind images/detections. The rebuild itself is atomic so readers
// never observe a half-refreshed table.
func RefreshStatistics(db *gorm.DB) error {
	start := time.Now()
	now := start.Unix()

	locStats, err := computeLocationStatistics(db, now)
	if err != nil {
		return fmt.Errorf("failed to compute location statistics: %w", err)
	}
	spStats, err := computeSpeciesStatistics(db, now)
	if err != nil {
		return fmt.Errorf("failed to compute species statistics: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM location_statistics").Error; err != nil {
			return fmt.Errorf("failed to clear location statistics: %w", err)
		}
		if err := tx.Exec("DELETE FROM species_statistics").Error; err != nil {
			return fmt.Errorf("failed to clear species statistics: %w", err)
		}
		if len(locStats) > 0 {
			if err := tx.Create(&locStats).Error; err != nil {
				return fmt.Errorf("failed to insert location statistics: %w", err)
			}
		}
		if len(spStats) > 0 {
			if err := tx.Create(&spStats).Error; err != nil {
				return fmt.Errorf("failed to insert species statistics: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("stats: refreshed %d location and %d species statistic rows in %s",
		len(locStats), len(spStats), time.Since(start).Round(time.Millisecond))
	return nil
}

func computeLocationStatistics(db *gorm.DB, now int64) ([]models.LocationStatistic, error) {
	queryBuilder := psql.Select(
		"l.id",
		"l.camera_id",
		"COUNT(DISTINCT i.id) AS total_images",
		"COUNT(d.id) AS total_detections",
		"COALESCE(SUM(CASE WHEN d.detection_type = ? THEN 1 ELSE 0 END), 0) AS animal_detections",
		"COUNT(DISTINCT d.species_id) AS species_count",
		"MAX(i.captured_at) AS last_captured_at",
	).
		From("locations l").
		LeftJoin("images i ON i.location_id = l.id").
		LeftJoin("detections d ON d.image_id = i.id").
		GroupBy("l.id", "l.camera_id")

	sqlStr, _, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build location statistics query: %w", err)
	}

	// the only placeholder is the CASE expression's detection type
	rows, err := db.Raw(sqlStr, DetectionTypeAnimal).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to run location statistics query: %w", err)
	}
	defer rows.Close()

	var stats []models.LocationStatistic
	for rows.Next() {
		var st models.LocationStatistic
		var lastCaptured sql.NullInt64
		if err := rows.Scan(&st.LocationID, &st.CameraID, &st.TotalImages,
			&st.TotalDetections, &st.AnimalDetections, &st.SpeciesCount, &lastCaptured); err != nil {
			return nil, fmt.Errorf("failed to scan location statistics row: %w", err)
		}
		if lastCaptured.Valid {
			v := lastCaptured.Int64
			st.LastCapturedAt = &v
		}
		st.RefreshedAt = now
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func computeSpeciesStatistics(db *gorm.DB, now int64) ([]models.SpeciesStatistic, error) {
	queryBuilder := psql.Select(
		"s.id",
		"s.scientific_name",
		"s.common_name",
		"s.conservation_status",
		"COUNT(d.id) AS total_detections",
		"COUNT(DISTINCT d.image_id) AS image_count",
		"COUNT(DISTINCT i.location_id) AS location_count",
		"AVG(d.classifier_confidence) AS avg_confidence",
		"MIN(i.captured_at) AS first_seen_at",
		"MAX(i.captured_at) AS last_seen_at",
	).
		From("species s").
		LeftJoin("detections d ON d.species_id = s.id").
		LeftJoin("images i ON i.id = d.image_id").
		GroupBy("s.id", "s.scientific_name", "s.common_name", "s.conservation_status")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build species statistics query: %w", err)
	}

	rows, err := db.Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to run species statistics query: %w", err)
	}
	defer rows.Close()

	var stats []models.SpeciesStatistic
	for rows.Next() {
		var st models.SpeciesStatistic
		var commonName, conservation sql.NullString
		var avgConf sql.NullFloat64
		var firstSeen, lastSeen sql.NullInt64
		if err := rows.Scan(&st.SpeciesID, &st.ScientificName, &commonName, &conservation,
			&st.TotalDetections, &st.ImageCount, &st.LocationCount, &avgConf, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan species statistics row: %w", err)
		}
		if commonName.Valid {
			v := commonName.String
			st.CommonName = &v
		}
		if conservation.Valid {
			v := conservation.String
			st.ConservationStatus = &v
		}
		if avgConf.Valid {
			v := avgConf.Float64
			st.AvgConfidence = &v
		}
		if firstSeen.Valid {
			v := firstSeen.Int64
			st.FirstSeenAt = &v
		}
		if lastSeen.Valid {
			v := lastSeen.Int64
			st.LastSeenAt = &v
		}
		st.RefreshedAt = now
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
