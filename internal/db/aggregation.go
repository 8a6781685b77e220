package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// runAggregationOnce aggregates view events for the given hour
// (bucketStart to bucketStart+1h) into MetricBucket rows. Call with
// bucketStart = time in UTC truncated to hour.
func runAggregationOnce(db *gorm.DB, bucketStart time.Time) error {
	bucketEnd := bucketStart.Add(time.Hour)

	var events []ViewEvent
	if err := db.Where("created_at >= ? AND created_at < ?", bucketStart, bucketEnd).
		Select("user_id", "tour_public_id", "kind").
		Find(&events).Error; err != nil {
		return err
	}

	// Group by (user_id, tour) and count per event kind.
	type key struct {
		UserID uint
		Tour   string
	}
	type counts struct {
		views     int64
		steps     int64
		completes int64
	}
	groups := make(map[key]*counts)
	for _, e := range events {
		k := key{UserID: e.UserID, Tour: e.TourPublicID}
		c := groups[k]
		if c == nil {
			c = &counts{}
			groups[k] = c
		}
		switch e.Kind {
		case EventView:
			c.views++
		case EventStep:
			c.steps++
		case EventComplete:
			c.completes++
		}
	}

	for k, c := range groups {
		row := MetricBucket{
			UserID:        k.UserID,
			TourPublicID:  k.Tour,
			BucketStart:   bucketStart,
			ViewCount:     c.views,
			StepCount:     c.steps,
			CompleteCount: c.completes,
		}
		var existing MetricBucket
		err := db.Where("user_id = ? AND tour_public_id = ? AND bucket_start = ?", k.UserID, k.Tour, bucketStart).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			err = db.Create(&row).Error
		} else if err == nil {
			err = db.Model(&existing).Updates(map[string]interface{}{
				"view_count":     row.ViewCount,
				"step_count":     row.StepCount,
				"complete_count": row.CompleteCount,
			}).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// StartAggregationWorker runs aggregation for the previous full hour at startup,
// then every hour. Buckets are in UTC.
func StartAggregationWorker(db *gorm.DB) {
	go func() {
		// Run for the last 24 completed hours at startup.
		now := time.Now().UTC()
		for i := 1; i <= 24; i++ {
			bucketStart := now.Truncate(time.Hour).Add(-time.Duration(i) * time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				log.Printf("aggregation error (startup) for %s: %v", bucketStart.Format(time.RFC3339), err)
			}
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			bucketStart := t.UTC().Truncate(time.Hour).Add(-time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				log.Printf("aggregation error for %s: %v", bucketStart.Format(time.RFC3339), err)
			}
		}
	}()
}
