// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package server exposes the monitor over HTTP: result set operations,
// schema and connection settings as JSON, engine events over a websocket and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ccmonitor/cli/internal/backend"
	"ccmonitor/cli/internal/chaincode"
	"ccmonitor/cli/internal/config"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/logging"
	"ccmonitor/cli/internal/monitor"
	"ccmonitor/cli/internal/schema"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Engine  *monitor.Engine
	Store   *config.Store
	Schema  *schema.Fetcher
	Init    backend.Initializer
	Metrics http.Handler
	Log     *pterm.Logger
}

// Server is the HTTP front end of one monitor session.
type Server struct {
	d        Deps
	router   *mux.Router
	upgrader websocket.Upgrader
}

// New builds the router.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	s := &Server{
		d:      d,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	r := s.router
	r.HandleFunc("/results", s.listResults).Methods(http.MethodGet)
	r.HandleFunc("/results", s.submitQuery).Methods(http.MethodPost)
	r.HandleFunc("/results", s.clearResults).Methods(http.MethodDelete)
	r.HandleFunc("/results/{ref}/polling", s.togglePolling).Methods(http.MethodPost)
	r.HandleFunc("/results/{ref}/removable", s.setRemovable).Methods(http.MethodPut)
	r.HandleFunc("/results/{ref}", s.removeResult).Methods(http.MethodDelete)
	r.HandleFunc("/invoke", s.submitInvoke).Methods(http.MethodPost)
	r.HandleFunc("/schema", s.getSchema).Methods(http.MethodGet)
	r.HandleFunc("/config", s.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/config", s.putConfig).Methods(http.MethodPut)
	r.HandleFunc("/events", s.events).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type callBody struct {
	Function string         `json:"function"`
	Args     chaincode.Args `json:"args"`
}

type outcomeBody struct {
	Entry    *monitor.Entry `json:"entry,omitempty"`
	Payload  string         `json:"payload,omitempty"`
	Applied  bool           `json:"applied"`
	Appended bool           `json:"appended"`
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	entries, err := s.d.Engine.Entries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) submitQuery(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, chaincode.Query)
}

func (s *Server) submitInvoke(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, chaincode.Invoke)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, kind chaincode.Kind) {
	var body callBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeStatus(w, http.StatusBadRequest, "request body must be JSON with function and args")
		return
	}
	if body.Function == "" {
		writeStatus(w, http.StatusBadRequest, "function is required")
		return
	}
	out := s.d.Engine.Submit(r.Context(), body.Args, body.Function, kind)
	if out.Err != nil {
		writeError(w, out.Err)
		return
	}
	resp := outcomeBody{Payload: out.Payload, Applied: out.Applied, Appended: out.Appended}
	if out.Applied {
		resp.Entry = &out.Entry
	}
	status := http.StatusOK
	if out.Appended {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) togglePolling(w http.ResponseWriter, r *http.Request) {
	ent, err := s.d.Engine.TogglePolling(r.Context(), monitor.ParseRef(mux.Vars(r)["ref"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) setRemovable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Removable *bool `json:"removable"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Removable == nil {
		writeStatus(w, http.StatusBadRequest, `body must be {"removable": true|false}`)
		return
	}
	ent, err := s.d.Engine.SetRemovable(r.Context(), monitor.ParseRef(mux.Vars(r)["ref"]), *body.Removable)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) removeResult(w http.ResponseWriter, r *http.Request) {
	ent, err := s.d.Engine.Remove(r.Context(), monitor.ParseRef(mux.Vars(r)["ref"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) clearResults(w http.ResponseWriter, r *http.Request) {
	n, err := s.d.Engine.ClearAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	if s.d.Schema == nil {
		writeStatus(w, http.StatusNotFound, "schema lookups are disabled")
		return
	}
	c, err := s.d.Schema.Fetch(r.Context(), s.d.Store.Read())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.d.Store.Read().Settings())
}

// putConfig overlays the body on the current settings and replaces the
// connection wholesale. Secrets are not accepted here.
func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	cur := s.d.Store.Read()
	settings := cur.Settings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeStatus(w, http.StatusBadRequest, "request body must be connection settings JSON")
		return
	}
	next := cur.WithSettings(settings)
	if err := s.d.Store.Replace(next); err != nil {
		writeError(w, err)
		return
	}
	if s.d.Schema != nil {
		s.d.Schema.Invalidate()
	}
	if s.d.Init != nil {
		if err := s.d.Init.InitClient(r.Context(), next); err != nil {
			s.d.Log.Warn("bridge init failed", s.d.Log.Args("error", logging.Mask(err.Error())))
		}
	}
	writeJSON(w, http.StatusOK, next.Settings())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch cerrors.KindOf(err) {
	case cerrors.KindIndex:
		status = http.StatusNotFound
	case cerrors.KindConfig:
		status = http.StatusBadRequest
	case cerrors.KindApplication:
		status = http.StatusUnprocessableEntity
	case cerrors.KindTransport:
		status = http.StatusBadGateway
	}
	if errors.Is(err, monitor.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{
		"error": cerrors.MessageOf(err),
		"kind":  string(cerrors.KindOf(err)),
	})
}
