// Copyright 2024 Google LLC
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

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"google.golang.org/grpc/codes"

	"github.com/lmnr-ai/query-engine/internal/querybuilder"
	"github.com/lmnr-ai/query-engine/internal/queryengine"
)

// apiRouter creates a router that represents the routes under /api.
func apiRouter(s *Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.AllowContentType("application/json"))

	r.Post("/validate", validateHandler(s))
	r.Post("/json-to-sql", jsonToSQLHandler(s))
	r.Post("/sql-to-json", sqlToJSONHandler(s))

	return r
}

type validateRequest struct {
	Query     string `json:"query"`
	ProjectID string `json:"project_id"`
}

type validateResponse struct {
	Query string `json:"query"`
}

func (validateResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

func validateHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Validate.Add(r.Context(), 1)

		var req validateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}

		secured, err := s.facade.ValidateQuery(r.Context(), req.Query, req.ProjectID)
		if err != nil {
			_ = render.Render(w, r, errResponseFromStatusError(err))
			return
		}

		_ = render.Render(w, r, validateResponse{Query: secured})
	}
}

type jsonToSQLResponse struct {
	SQL string `json:"sql"`
}

func (jsonToSQLResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

func jsonToSQLHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.JsonToSql.Add(r.Context(), 1)

		var intent querybuilder.QueryIntent
		if err := render.DecodeJSON(r.Body, &intent); err != nil {
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}

		sql, err := s.facade.JsonToSql(r.Context(), &intent)
		if err != nil {
			_ = render.Render(w, r, errResponseFromStatusError(err))
			return
		}

		_ = render.Render(w, r, jsonToSQLResponse{SQL: sql})
	}
}

type sqlToJSONRequest struct {
	Sql string `json:"sql"`
}

type sqlToJSONResponse struct {
	*querybuilder.QueryIntent
}

func (sqlToJSONResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

func sqlToJSONHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.SqlToJson.Add(r.Context(), 1)

		var req sqlToJSONRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}

		intent, err := s.facade.SqlToJson(r.Context(), req.Sql)
		if err != nil {
			_ = render.Render(w, r, errResponseFromStatusError(err))
			return
		}

		_ = render.Render(w, r, sqlToJSONResponse{QueryIntent: intent})
	}
}

// newErrResponse initializes an errResponse from a plain error.
func newErrResponse(err error, code int) *errResponse {
	return &errResponse{
		Err:            err,
		HTTPStatusCode: code,
		StatusText:     http.StatusText(code),
		ErrorText:      err.Error(),
	}
}

// errResponseFromStatusError maps a queryengine.StatusError's RPC code onto
// an HTTP status, mirroring how server.py's gRPC status codes would be
// translated by a JSON gateway in front of the same service.
func errResponseFromStatusError(err error) *errResponse {
	se, ok := err.(*queryengine.StatusError)
	if !ok {
		return newErrResponse(err, http.StatusInternalServerError)
	}
	code := http.StatusInternalServerError
	if se.Code == codes.InvalidArgument {
		code = http.StatusBadRequest
	}
	return newErrResponse(se, code)
}

// errResponse is the response sent back when an error has been encountered.
type errResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}
