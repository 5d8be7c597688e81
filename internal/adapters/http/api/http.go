// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/rally/pkg/logger"
)

// defaultMaxBodyBytes caps request bodies when no limit is configured.
const defaultMaxBodyBytes = 5 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ParticipantDependencies
	LinkingDependencies
	AutoLinkDependencies
	RallyDependencies
	ChampionshipDependencies
	StatsProvider
	Pinger
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	participantsHandler *ParticipantsHandler
	linkingHandler      *LinkingHandler
	autoLinkHandler     *AutoLinkHandler
	ralliesHandler      *RalliesHandler
	championshipHandler *ChampionshipsHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxBodyBytes int64
	logger       logger.Logger
}

// WithMaxBodyBytes caps JSON and HTML request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxBodyBytes: defaultMaxBodyBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	rsp := responder{log: cfg.logger, maxBodyBytes: cfg.maxBodyBytes}

	return &Server{
		healthHandler:       NewHealthHandler(deps),
		statsHandler:        NewStatsHandler(deps),
		participantsHandler: &ParticipantsHandler{deps: deps, responder: rsp},
		linkingHandler:      &LinkingHandler{deps: deps, responder: rsp},
		autoLinkHandler:     &AutoLinkHandler{deps: deps, responder: rsp},
		ralliesHandler:      &RalliesHandler{deps: deps, responder: rsp},
		championshipHandler: &ChampionshipsHandler{deps: deps, responder: rsp},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /metrics", "metrics", s.healthHandler.HandleHealth)
	route("GET /readyz", "readyz", s.healthHandler.HandleReady)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /participants", "participants", s.participantsHandler.HandleList)
	route("POST /participants", "participants", s.participantsHandler.HandleCreate)
	route("GET /participants/{id}", "participant", s.participantsHandler.HandleGet)
	route("POST /participants/{id}/aliases", "aliases", s.participantsHandler.HandleAddAlias)
	route("GET /aliases/conflicts", "alias_conflicts", s.participantsHandler.HandleConflicts)

	route("GET /results/unlinked", "unlinked", s.linkingHandler.HandleUnlinked)
	route("GET /results/{id}/suggestions", "result_suggestions", s.linkingHandler.HandleResultSuggestions)
	route("GET /suggestions", "suggestions", s.linkingHandler.HandleNameSuggestions)
	route("POST /results/{id}/link", "link", s.linkingHandler.HandleLink)
	route("POST /results/{id}/unlink", "unlink", s.linkingHandler.HandleUnlink)
	route("POST /results/{id}/status", "result_status", s.linkingHandler.HandleStatus)

	route("POST /autolink", "autolink", s.autoLinkHandler.HandleRun)

	route("GET /rallies", "rallies", s.ralliesHandler.HandleList)
	route("POST /rallies", "rallies", s.ralliesHandler.HandleCreate)
	route("POST /rallies/{id}/results", "submit_results", s.ralliesHandler.HandleSubmit)
	route("POST /rallies/{id}/results/import", "import_results", s.ralliesHandler.HandleImport)
	route("POST /rallies/{id}/approve", "approve", s.ralliesHandler.HandleApprove)

	route("GET /championships", "championships", s.championshipHandler.HandleList)
	route("POST /championships", "championships", s.championshipHandler.HandleCreate)
	route("POST /championships/{id}/rallies", "attach_rally", s.championshipHandler.HandleAttachRally)
	route("GET /championships/{id}/teams", "teams", s.championshipHandler.HandleListTeams)
	route("POST /championships/{id}/teams", "teams", s.championshipHandler.HandleCreateTeam)
	route("GET /championships/{id}/standings", "standings", s.championshipHandler.HandleStandings)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// responder carries what every handler needs to read requests and report
// failures.
type responder struct {
	log          logger.Logger
	maxBodyBytes int64
}

// fail maps err to a status. Server errors are logged and their detail is
// not sent to the client.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, Wrap(op, err))
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func (rs responder) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, rs.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind("decode body", ErrPayloadTooLarge, err)
		}
		return WrapKind("decode body", ErrBadRequest, err)
	}
	if dec.More() {
		return NewKind("trailing data after body", ErrBadRequest)
	}
	return nil
}

// body limits a raw request body.
func (rs responder) body(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, rs.maxBodyBytes)
}

// listOf keeps empty lists encoded as [] rather than null.
func listOf[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
