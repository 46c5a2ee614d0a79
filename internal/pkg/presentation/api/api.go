// Package api exposes the debug/admin HTTP surface: a health check, a
// read-only view of the in-memory registry, and an SSE mount for the
// operator event feed. It carries no authentication; the registry itself
// holds no tenant or credential data for this surface to gate.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/registry"
	"github.com/diwise/lwm2m-registry/internal/pkg/application/webevents"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	"log/slog"
)

var tracer = otel.Tracer("lwm2m-registry/api")

func RegisterHandlers(log *slog.Logger, router *chi.Mux, reg *registry.Registry, feed *webevents.Feed) *chi.Mux {
	router.Get("/health", NewHealthHandler(log))

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", listDevicesHandler(log, reg))
			r.Get("/{serverEndpoint}", getDeviceHandler(log, reg))
		})

		if feed != nil {
			r.Handle("/events", feed.Server())
		}
	})

	return router
}

func NewHealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func listDevicesHandler(log *slog.Logger, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "list-devices")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, _, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		devices := reg.List()

		b, err := json.Marshal(devices)
		if err != nil {
			requestLogger.Error("unable to marshal devices to json", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

func getDeviceHandler(log *slog.Logger, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-device")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, _, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		serverEndpoint := chi.URLParam(r, "serverEndpoint")

		device, ok := reg.Get(serverEndpoint)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		b, err := json.Marshal(device)
		if err != nil {
			requestLogger.Error("unable to marshal device to json", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}
