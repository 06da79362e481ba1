package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/security"
	"parrotdb/pkg/utils"
)

// RegisterAdmin mounts the admin-only routes. Every handler re-checks the
// caller's role so the routes stay safe even if middleware ordering changes.
func (s *Server) RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/v1/admin/backup", s.adminOnly(s.handleBackup)).Methods(http.MethodGet)
	r.HandleFunc("/v1/admin/catalog", s.adminOnly(s.handleClear)).Methods(http.MethodDelete)
	r.HandleFunc("/v1/admin/status", s.adminOnly(s.handleAdminStatus)).Methods(http.MethodGet)
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !security.IsAdmin(r) {
			writeErr(w, r, cerr.New(cerr.Unauthorized, "admin credentials required"))
			return
		}
		next(w, r)
	}
}

// handleBackup dumps every catalog entry as a single JSON document.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.queryTimeout)
	defer cancel()

	entries, err := s.catalog.Scan(ctx)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	logger.Info("catalog backup served", zap.Int("entries", len(entries)))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"count":       len(entries),
		"entries":     entries,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.queryTimeout)
	defer cancel()

	n, err := s.catalog.ClearAll(ctx)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.svc.FlushCache()
	logger.Warn("catalog cleared", zap.Int("removed", n))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"cleared": n})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.queryTimeout)
	defer cancel()

	count, err := s.catalog.Count(ctx)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"entries":    count,
		"disk_bytes": s.catalog.DiskUsage(),
		"ready":      s.catalog.Ready(),
	})
}
