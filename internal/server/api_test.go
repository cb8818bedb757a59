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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lmnr-ai/query-engine/internal/queryengine"
	"github.com/lmnr-ai/query-engine/internal/registry"
	"github.com/lmnr-ai/query-engine/internal/validator"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	v, err := validator.New("v2", registry.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	metrics, err := CreateCustomMetrics("test")
	if err != nil {
		t.Fatalf("CreateCustomMetrics: %v", err)
	}
	s := &Server{
		conf:    ServerConfig{Version: "test"},
		root:    nil,
		metrics: metrics,
		facade:  queryengine.NewFacade(v, 0),
	}
	s.root = apiRouter(s)
	return s
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.root.ServeHTTP(w, req)
	return w
}

func TestValidateHandlerSuccess(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/validate", validateRequest{
		Query:     "SELECT span_id FROM spans",
		ProjectID: "p1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateHandlerRejectsMissingQuery(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/validate", validateRequest{ProjectID: "p1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJsonToSQLHandlerSuccess(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"table":      "spans",
		"dimensions": []string{"name"},
	}
	w := doRequest(s, http.MethodPost, "/json-to-sql", body)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJsonToSQLHandlerRejectsEmptyIntent(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"table": "spans"}
	w := doRequest(s, http.MethodPost, "/json-to-sql", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSqlToJSONHandlerSuccess(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/sql-to-json", sqlToJSONRequest{
		Sql: "SELECT name, COUNT(span_id) AS value FROM spans GROUP BY name",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSqlToJSONHandlerRejectsEmptySQL(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/sql-to-json", sqlToJSONRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
}
