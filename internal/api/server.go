// Package api is the hub's HTTP surface: activity log queries, session
// reports, exports, notes, screenshots, and the live SSE stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/bus"
	"github.com/dgnsrekt/tv_tracker/internal/hub"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
)

type Service interface {
	ListLogs(ctx context.Context, symbol, kind string, limit int) ([]activity.Event, error)
	ClearLogs(ctx context.Context) error
	ListReports(ctx context.Context, symbol string) ([]activity.SessionReport, error)
	GetReport(ctx context.Context, id string) (activity.SessionReport, error)
	ForceReport(ctx context.Context) error
	ExportCSV(ctx context.Context) ([]byte, error)
	ExportMarkdown(ctx context.Context) ([]byte, error)
	GetMemory(ctx context.Context, symbol string) (activity.SymbolMemory, error)
	GetNote(ctx context.Context, symbol string) (string, error)
	SetNote(ctx context.Context, symbol, note string) error
	DeleteNote(ctx context.Context, symbol string) error
	ListScreenshots(ctx context.Context, symbol string) ([]storage.ShotMeta, error)
	ReadScreenshot(ctx context.Context, id string) ([]byte, string, error)
	GetState(ctx context.Context) (hub.State, error)
	Broker() *bus.Broker
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("TV Tracker Hub API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerLogHandlers(api, svc)
	registerReportHandlers(api, svc)
	registerNoteHandlers(api, svc)
	registerMiscHandlers(api, svc)

	// Raw responses live outside huma: SSE, file downloads, image bytes.
	router.Get("/api/v1/events", bus.SSEHandler(svc.Broker()))
	router.Get("/api/v1/export/csv", exportHandler(svc.ExportCSV, "text/csv", "activity_log.csv"))
	router.Get("/api/v1/export/markdown", exportHandler(svc.ExportMarkdown, "text/markdown", "session_reports.md"))
	router.Get("/api/v1/screenshots/{shot_id}/image", imageHandler(svc))

	return router
}

func exportHandler(render func(context.Context) ([]byte, error), contentType, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := render(r.Context())
		if err != nil {
			writeCodedError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if _, err := w.Write(data); err != nil {
			slog.Debug("export response write failed", "error", err)
		}
	}
}

func imageHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, format, err := svc.ReadScreenshot(r.Context(), chi.URLParam(r, "shot_id"))
		if err != nil {
			writeCodedError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/"+format)
		if _, err := w.Write(data); err != nil {
			slog.Debug("image response write failed", "error", err)
		}
	}
}

// writeCodedError is the raw-handler counterpart of mapErr.
func writeCodedError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var coded *hub.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case hub.CodeValidation:
			status = http.StatusBadRequest
		case hub.CodeNotFound, hub.CodeNoData:
			status = http.StatusNotFound
		case hub.CodeWatcherOffline:
			status = http.StatusBadGateway
		}
		http.Error(w, coded.Message, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *hub.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case hub.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case hub.CodeNotFound, hub.CodeNoData:
			return huma.Error404NotFound(coded.Message)
		case hub.CodeWatcherOffline:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
