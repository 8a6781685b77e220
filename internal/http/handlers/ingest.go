package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"narrify/internal/config"
	dbpkg "narrify/internal/db"
)

var tourEventsTotal *prometheus.CounterVec

func InitPrometheusMetrics() {
	tourEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrify",
			Name:      "tour_events_total",
			Help:      "Total number of ingested embed events.",
		},
		[]string{"tour", "kind"},
	)
	prometheus.MustRegister(tourEventsTotal)
}

type IngestEvent struct {
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	TourID       string         `json:"tour_id"`
	Kind         string         `json:"kind"`
	StepPosition int            `json:"step,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

type ingestRequest struct {
	Events []IngestEvent `json:"events"`
}

// IngestHandler accepts batched analytics events from the embed script.
// The batch is attributed to the tenant whose key authorized the call.
func IngestHandler(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		clientID, ok := MustAccess(ctx)
		if !ok {
			return
		}

		var payload ingestRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("invalid JSON body")
			return
		}
		if len(payload.Events) == 0 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("no events provided")
			return
		}

		now := time.Now()
		remoteIP := ctx.RemoteAddr().String()

		records := make([]dbpkg.ViewEvent, 0, len(payload.Events))

		for _, ev := range payload.Events {
			if ev.TourID == "" {
				continue
			}
			switch ev.Kind {
			case dbpkg.EventView, dbpkg.EventStep, dbpkg.EventComplete:
			default:
				continue
			}

			createdAt := now
			if ev.Timestamp != nil {
				createdAt = *ev.Timestamp
			}

			attrs := datatypes.JSONMap{}
			for k, v := range ev.Attributes {
				attrs[k] = v
			}

			var expiresAt *time.Time
			if cfg.RetentionDays > 0 {
				t := createdAt.Add(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
				expiresAt = &t
			}

			rec := dbpkg.ViewEvent{
				CreatedAt:    createdAt,
				ExpiresAt:    expiresAt,
				UserID:       clientID,
				TourPublicID: ev.TourID,
				Kind:         ev.Kind,
				StepPosition: ev.StepPosition,
				RemoteIP:     remoteIP,
				Attributes:   attrs,
			}
			records = append(records, rec)

			tourEventsTotal.WithLabelValues(ev.TourID, ev.Kind).Inc()
		}

		if len(records) == 0 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("no valid events after validation")
			return
		}

		if err := db.Create(&records).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to persist events")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"accepted","count":` + strconv.Itoa(len(records)) + `}`)
	}
}
