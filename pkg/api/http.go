package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/chat"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/models"
	"parrotdb/pkg/store"
	"parrotdb/pkg/utils"
)

// Server holds the HTTP surface for the chat catalog.
type Server struct {
	svc          *chat.Service
	catalog      *store.Catalog
	queryTimeout time.Duration
}

// NewServer builds a Server around the chat service. queryTimeout bounds
// every store-backed request; zero falls back to 5s.
func NewServer(svc *chat.Service, catalog *store.Catalog, queryTimeout time.Duration) *Server {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Server{svc: svc, catalog: catalog, queryTimeout: queryTimeout}
}

// Register mounts the public chat routes on the router.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/v1/chat", s.handleChat).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", s.handleStats).Methods(http.MethodGet)
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.queryTimeout)
	defer cancel()

	cmd := ParseCommand(r.URL.Query())
	if cmd.Kind == models.CmdLookup && cmd.Text == "" {
		_ = utils.JSONWrite(w, http.StatusOK, serviceInfo())
		return
	}

	var (
		out any
		err error
	)
	switch cmd.Kind {
	case models.CmdLookup:
		out, err = s.svc.Lookup(ctx, cmd.Text, cmd.Mode)
	case models.CmdTeach:
		out, err = s.svc.Teach(ctx, cmd)
	case models.CmdTeachReact:
		out, err = s.svc.TeachReactions(ctx, cmd)
	case models.CmdRemove:
		out, err = s.svc.Remove(ctx, cmd.Message)
	case models.CmdRemoveAt:
		out, err = s.svc.RemoveAt(ctx, cmd.Message, cmd.Index)
	case models.CmdEdit:
		out, err = s.svc.Edit(ctx, cmd.Message, cmd.NewText)
	case models.CmdList:
		out, err = s.svc.List(ctx, cmd)
	case models.CmdListOne:
		out, err = s.svc.ListOne(ctx, cmd.Message)
	case models.CmdSearch:
		out, err = s.svc.Search(ctx, cmd)
	case models.CmdRandom:
		out, err = s.svc.Random(ctx)
	case models.CmdStats:
		out, err = s.svc.Stats(ctx)
	default:
		err = cerr.New(cerr.Validation, "unrecognized command")
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, s.queryTimeout)
	defer cancel()

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, stats)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := cerr.HTTPStatus(err)
	kind := cerr.KindOf(err)
	if status >= 500 {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	utils.JSONError(w, status, string(kind), err.Error())
}

func serviceInfo() map[string]any {
	return map[string]any{
		"service": "parrotdb",
		"usage": map[string]string{
			"reply":  "/v1/chat?text=<message>",
			"teach":  "/v1/chat?teach=<message>&reply=<r1,r2>",
			"react":  "/v1/chat?teach=<message>&react=<emoji>",
			"remove": "/v1/chat?remove=<message>[&index=<n>]",
			"edit":   "/v1/chat?edit=<old>&replace=<new>",
			"list":   "/v1/chat?list=all | /v1/chat?list=<message>",
			"search": "/v1/chat?search=<query>",
			"random": "/v1/chat?random=true",
			"stats":  "/v1/chat?stats=true",
		},
	}
}
