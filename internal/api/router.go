package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canvas-agent/internal/config"
	"canvas-agent/internal/service"
	"canvas-agent/internal/ws"
)

func NewRouter(
	cfg config.Config,
	hub *ws.Hub,
	commandSvc *service.CommandService,
	assetSvc *service.AssetService,
	logger *slog.Logger,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		cfg:        cfg,
		hub:        hub,
		commandSvc: commandSvc,
		assetSvc:   assetSvc,
		logger:     logger.With("component", "api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/ws", h.WebSocket)
	mux.HandleFunc("/v1/tools", h.ListTools)
	mux.HandleFunc("/v1/documents", h.Documents)
	mux.HandleFunc("/v1/documents/", h.DocumentRoutes)
	if assetSvc != nil {
		mux.Handle(service.AssetURLPrefix, http.StripPrefix(service.AssetURLPrefix, http.FileServer(http.Dir(assetSvc.Dir()))))
	}

	return limitBody(cfg.MaxUploadSizeBytes, mux)
}

func limitBody(maxSize int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		next.ServeHTTP(w, r)
	})
}
