package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parrotdb/pkg/api"
	"parrotdb/pkg/security"
	"parrotdb/pkg/telemetry"
)

type httpServer struct {
	app *App
	srv *http.Server
}

func newHTTPServer(a *App) *httpServer {
	r := mux.NewRouter()

	apiSrv := api.NewServer(a.svc, a.catalog, a.cfg.Chat.QueryTimeout.Duration())
	apiSrv.Register(r)
	apiSrv.RegisterAdmin(r)

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	secCfg := security.SecConfig{
		AdminKey:       a.cfg.Security.AdminKey,
		AllowedOrigins: append([]string{}, a.cfg.Security.CORS.AllowedOrigins...),
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, a.cfg.Security.IPWhitelist...),
	}
	var handler http.Handler = r
	handler = security.Middleware(secCfg)(handler)
	handler = telemetry.Middleware(handler)

	return &httpServer{
		app: a,
		srv: &http.Server{
			Addr:              a.cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (h *httpServer) start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (h *httpServer) shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !a.catalog.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
