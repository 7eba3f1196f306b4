// Copyright 2026 modelworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the engine over HTTP. Every endpoint is a POST
// returning a JSON envelope with a human-readable message plus
// operation-specific fields. Multi-item operations report partial failures
// itemized inside a 200 response; only validation and whole-operation
// failures map to error statuses.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/cleanup"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/props"
	"github.com/modelworks/refit/pkg/session"
	"github.com/modelworks/refit/pkg/suppress"
)

// 🔧 Options contains the server's collaborators
type Options struct {
	Host     cadhost.Host
	Session  *session.Session
	Operator operation.Operator
	Logger   zerolog.Logger
}

// 🌐 Server routes HTTP requests into the engine
type Server struct {
	host     cadhost.Host
	session  *session.Session
	operator operation.Operator
	props    *props.Updater
	suppress *suppress.Controller
	cleaner  *cleanup.Cleaner
	logger   zerolog.Logger
}

// 🏭 New creates a new server with the given options
func New(opts Options) (*Server, error) {
	if opts.Host == nil {
		return nil, errors.Errorf("host is required")
	}
	if opts.Session == nil {
		return nil, errors.Errorf("session is required")
	}
	if opts.Operator == nil {
		return nil, errors.Errorf("operator is required")
	}
	propsUpdater, err := props.NewUpdater(opts.Session)
	if err != nil {
		return nil, err
	}
	controller, err := suppress.NewController(opts.Session)
	if err != nil {
		return nil, err
	}
	return &Server{
		host:     opts.Host,
		session:  opts.Session,
		operator: opts.Operator,
		props:    propsUpdater,
		suppress: controller,
		cleaner:  cleanup.NewCleaner(),
		logger:   opts.Logger,
	}, nil
}

// Handler builds the routed handler wrapped in request logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/open-assembly", s.handleOpenAssembly)
	mux.HandleFunc("POST /api/v1/close-assembly", s.handleCloseAssembly)
	mux.HandleFunc("POST /api/v1/change-parameters", s.handleChangeParameters)
	mux.HandleFunc("POST /api/v1/suppress-component", s.handleSuppressComponent)
	mux.HandleFunc("POST /api/v1/suppress-multiple-components", s.handleSuppressMultiple)
	mux.HandleFunc("POST /api/v1/update-all-properties", s.handleUpdateAllProperties)
	mux.HandleFunc("POST /api/v1/update-multiple-iparts-iassemblies", s.handleUpdateFactories)
	mux.HandleFunc("POST /api/v1/update-model-state-and-representations", s.handleUpdateModelStates)
	mux.HandleFunc("POST /api/v1/design-assist-rename", s.handleDesignAssistRename)
	mux.HandleFunc("POST /api/v1/design-assist-analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/v1/design-assist-recursive-rename", s.handleRecursiveRename)
	mux.HandleFunc("POST /api/v1/design-assist-recursive-rename-with-prefix", s.handleRenameWithPrefix)
	mux.HandleFunc("POST /api/v1/design-assist-recursive-rename-with-prefix-and-drawings", s.handleFullRename)
	mux.HandleFunc("POST /api/v1/delete-files", s.handleDeleteFiles)
	mux.HandleFunc("POST /api/v1/update-drawing-references", s.handleUpdateDrawingReferences)

	// hlog middleware: request-scoped logger, request IDs, access logging.
	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
	h = hlog.NewHandler(s.logger)(h)
	return h
}

// envelope is the common response shape
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeClientError names the offending field per the validation contract
func writeClientError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		"message": message,
		"field":   field,
		"reason":  "validation",
	})
}

func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("operation failed")
	status := http.StatusInternalServerError
	reason := "host-failure"
	if errors.Is(err, session.ErrBusy) {
		status = http.StatusConflict
		reason = "session-busy"
	}
	writeJSON(w, status, envelope{
		"message": err.Error(),
		"reason":  reason,
	})
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		writeClientError(w, "body", "decoding request body: "+err.Error())
		return false
	}
	return true
}
