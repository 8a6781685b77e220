package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "narrify/internal/db"
)

func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr())
	}
}

// rangeDays parses the ?days= query arg, clamped to [1, 90]. Default 7.
func rangeDays(ctx *fasthttp.RequestCtx) int {
	days := 7
	if v := string(ctx.QueryArgs().Peek("days")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	if days > 90 {
		days = 90
	}
	return days
}

type trafficPoint struct {
	Bucket    string `json:"bucket"`
	Views     int64  `json:"views"`
	Completes int64  `json:"completes"`
}

// TrafficSeries returns hourly view/completion counts for the current
// tenant, optionally filtered to one tour, from the aggregated buckets.
func TrafficSeries(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		tour := string(ctx.QueryArgs().Peek("tour"))
		since := time.Now().UTC().Add(-time.Duration(rangeDays(ctx)) * 24 * time.Hour)

		q := db.Model(&dbpkg.MetricBucket{}).
			Where("user_id = ? AND bucket_start >= ?", user.ID, since)
		if tour != "" {
			q = q.Where("tour_public_id = ?", tour)
		}

		var buckets []dbpkg.MetricBucket
		if err := q.Order("bucket_start ASC").Find(&buckets).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load traffic series")
			return
		}

		// Buckets for different tours in the same hour collapse into
		// one point when no tour filter is set.
		points := make([]trafficPoint, 0, len(buckets))
		for _, b := range buckets {
			label := b.BucketStart.Format(time.RFC3339)
			if n := len(points); n > 0 && points[n-1].Bucket == label {
				points[n-1].Views += b.ViewCount
				points[n-1].Completes += b.CompleteCount
				continue
			}
			points = append(points, trafficPoint{
				Bucket:    label,
				Views:     b.ViewCount,
				Completes: b.CompleteCount,
			})
		}

		jsonResponse(ctx, map[string]any{"series": points})
	}
}

// CompletionRate returns the overall completion ratio for the range.
func CompletionRate(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		tour := string(ctx.QueryArgs().Peek("tour"))
		since := time.Now().UTC().Add(-time.Duration(rangeDays(ctx)) * 24 * time.Hour)

		type totals struct {
			Views     int64
			Completes int64
		}
		var t totals
		q := db.Model(&dbpkg.MetricBucket{}).
			Select("COALESCE(SUM(view_count),0) AS views, COALESCE(SUM(complete_count),0) AS completes").
			Where("user_id = ? AND bucket_start >= ?", user.ID, since)
		if tour != "" {
			q = q.Where("tour_public_id = ?", tour)
		}
		if err := q.Scan(&t).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load completion rate")
			return
		}

		rate := 0.0
		if t.Views > 0 {
			rate = float64(t.Completes) / float64(t.Views)
		}
		jsonResponse(ctx, map[string]any{
			"views":     t.Views,
			"completes": t.Completes,
			"rate":      rate,
		})
	}
}

type tourCount struct {
	Tour  string `json:"tour"`
	Views int64  `json:"views"`
}

// TopTours returns the tenant's most viewed tours over the range.
func TopTours(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		since := time.Now().UTC().Add(-time.Duration(rangeDays(ctx)) * 24 * time.Hour)

		var rows []tourCount
		err := db.Model(&dbpkg.MetricBucket{}).
			Select("tour_public_id AS tour, SUM(view_count) AS views").
			Where("user_id = ? AND bucket_start >= ?", user.ID, since).
			Group("tour_public_id").
			Order("views DESC").
			Limit(10).
			Scan(&rows).Error
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load top tours")
			return
		}

		jsonResponse(ctx, map[string]any{"tours": rows})
	}
}

type recentEvent struct {
	ID        uint   `json:"id"`
	CreatedAt string `json:"created_at"`
	Display   string `json:"created_at_display"`
	Tour      string `json:"tour"`
	Kind      string `json:"kind"`
	Step      int    `json:"step"`
}

// RecentEvents returns the latest raw embed events for the live feed.
func RecentEvents(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		limit := 50
		if v := string(ctx.QueryArgs().Peek("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		var events []dbpkg.ViewEvent
		if err := db.Where("user_id = ?", user.ID).
			Order("created_at DESC").
			Limit(limit).
			Find(&events).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load recent events")
			return
		}

		out := make([]recentEvent, 0, len(events))
		for _, e := range events {
			out = append(out, recentEvent{
				ID:        e.ID,
				CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
				Display:   FormatEventTime(e.CreatedAt, user.TimeFormat),
				Tour:      e.TourPublicID,
				Kind:      e.Kind,
				Step:      e.StepPosition,
			})
		}

		jsonResponse(ctx, map[string]any{"events": out})
	}
}
