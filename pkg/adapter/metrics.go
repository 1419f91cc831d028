// Copyright 2024-2026 Aiku AI

package adapter

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplepad_events_emitted_total",
		Help: "Events emitted to the host, by category.",
	}, []string{"category"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplepad_events_dropped_total",
		Help: "Events dropped because the sink buffer was full.",
	})

	duplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplepad_duplicate_messages_total",
		Help: "Push messages suppressed as transport re-deliveries.",
	})

	wsReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplepad_ws_reconnects_total",
		Help: "Push channel reconnect attempts.",
	})

	heartbeatMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simplepad_heartbeat_misses_total",
		Help: "Heartbeat pings that were never acknowledged.",
	})

	framesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplepad_frames_handled_total",
		Help: "Push frames handled, by report type.",
	}, []string{"report_type"})
)

// ServeMetrics exposes the Prometheus registry over HTTP. It blocks until
// the listener fails.
func ServeMetrics(addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("Serving metrics")
	return srv.ListenAndServe()
}
