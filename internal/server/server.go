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
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	logLib "github.com/lmnr-ai/query-engine/internal/log"
	"github.com/lmnr-ai/query-engine/internal/queryengine"
	"go.opentelemetry.io/otel/trace"
)

// Server is the HTTP binding over a queryengine.Facade. Should be
// instantiated with NewServer().
type Server struct {
	conf    ServerConfig
	root    chi.Router
	logger  logLib.Logger
	metrics *ServerMetrics
	tracer  trace.Tracer
	facade  *queryengine.Facade
}

// NewServer returns a Server object based on provided Config and Facade.
func NewServer(cfg ServerConfig, facade *queryengine.Facade, log logLib.Logger, tracer trace.Tracer) (*Server, error) {
	metrics, err := CreateCustomMetrics(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom metrics: %w", err)
	}

	logLevel, err := logLib.SeverityToLevel(cfg.LogLevel.String())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize http log: %w", err)
	}
	var httpOpts httplog.Options
	switch cfg.LoggingFormat.String() {
	case "json":
		httpOpts = httplog.Options{
			JSON:             true,
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
			SourceFieldName:  "logging.googleapis.com/sourceLocation",
			TimeFieldName:    "timestamp",
			LevelFieldName:   "severity",
		}
	default:
		httpOpts = httplog.Options{
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
		}
	}

	httpLogger := httplog.NewLogger("httplog", httpOpts)
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httpLogger))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("query-engine"))
	})

	s := &Server{
		conf:    cfg,
		root:    r,
		logger:  log,
		metrics: metrics,
		tracer:  tracer,
		facade:  facade,
	}

	r.Mount("/api", apiRouter(s))

	log.InfoContext(context.Background(), "server initialized", "validator", cfg.ValidatorKind())

	return s, nil
}

// Listen starts a listener for the given Server instance.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := net.JoinHostPort(s.conf.Address, strconv.Itoa(s.conf.Port))
	lc := net.ListenConfig{KeepAlive: 30 * time.Second}
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open listener for %q: %w", addr, err)
	}
	return l, nil
}

// Serve starts an HTTP server for the given Server instance.
func (s *Server) Serve(l net.Listener) error {
	return http.Serve(l, s.root)
}
