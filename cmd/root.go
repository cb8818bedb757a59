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

// Package cmd wires the query engine's environment-variable configuration
// (spec.md §6: PORT, USE_LEGACY_VALIDATOR) into a running HTTP server.
package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	logLib "github.com/lmnr-ai/query-engine/internal/log"
	"github.com/lmnr-ai/query-engine/internal/queryengine"
	"github.com/lmnr-ai/query-engine/internal/registry"
	"github.com/lmnr-ai/query-engine/internal/server"
	"github.com/lmnr-ai/query-engine/internal/telemetry"
	tracelib "github.com/lmnr-ai/query-engine/internal/telemetry/trace"
	"github.com/lmnr-ai/query-engine/internal/validator"
)

var (
	// versionString indicates the version of this binary.
	//go:embed version.txt
	versionString string
	// metadataString indicates additional build or distribution metadata.
	metadataString string
)

func init() {
	versionString = semanticVersion()
}

// semanticVersion returns the version of the CLI including compile-time metadata.
func semanticVersion() string {
	v := strings.TrimSpace(versionString)
	if metadataString != "" {
		v += "+" + metadataString
	}
	return v
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command represents an invocation of the CLI.
type Command struct {
	*cobra.Command

	cfg       server.ServerConfig
	logger    logLib.Logger
	outStream io.Writer
	errStream io.Writer
}

// Option configures a Command at construction time.
type Option func(*Command)

// NewCommand returns a Command object representing an invocation of the CLI.
func NewCommand(opts ...Option) *Command {
	out := os.Stdout
	errW := os.Stderr

	baseCmd := &cobra.Command{
		Use:           "query-engine",
		Version:       versionString,
		SilenceErrors: true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: out,
		errStream: errW,
	}

	for _, o := range opts {
		o(cmd)
	}

	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	cmd.cfg.Version = versionString

	flags := cmd.Flags()
	flags.StringVarP(&cmd.cfg.Address, "address", "a", "0.0.0.0", "Address of the interface the server will listen on.")
	flags.IntVarP(&cmd.cfg.Port, "port", "p", 8903, "Port the server will listen on.")
	flags.BoolVar(&cmd.cfg.UseLegacyValidator, "use-legacy-validator", false, "Use the v1 (legacy) query validator instead of v2.")
	flags.IntVar(&cmd.cfg.WorkerPoolSize, "worker-pool-size", queryengine.DefaultConcurrency, "Maximum number of requests served concurrently.")
	flags.Var(&cmd.cfg.LogLevel, "log-level", "Specify the minimum level logged. Allowed: 'DEBUG', 'INFO', 'WARN', 'ERROR'.")
	flags.Var(&cmd.cfg.LoggingFormat, "logging-format", "Specify logging format to use. Allowed: 'standard' or 'JSON'.")

	applyEnvOverrides(&cmd.cfg)

	cmd.RunE = func(*cobra.Command, []string) error { return run(cmd) }

	return cmd
}

// applyEnvOverrides layers spec.md §6's two environment variables, PORT and
// USE_LEGACY_VALIDATOR, over the flag defaults — env wins when set, same
// precedence server.py gives os.environ.get() over its own hardcoded
// defaults.
func applyEnvOverrides(cfg *server.ServerConfig) {
	if p := os.Getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("USE_LEGACY_VALIDATOR"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.UseLegacyValidator = true
		case "0", "false", "no":
			cfg.UseLegacyValidator = false
		}
	}
}

func run(cmd *Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger, err := logLib.NewLogger(cmd.cfg.LoggingFormat.String(), cmd.cfg.LogLevel.String(), cmd.outStream, cmd.errStream)
	if err != nil {
		return fmt.Errorf("unable to initialize logger: %w", err)
	}
	cmd.logger = logger

	otelShutdown, err := telemetry.SetupOTel(ctx, cmd.Command.Version)
	if err != nil {
		errMsg := fmt.Errorf("error setting up OpenTelemetry: %w", err)
		cmd.logger.ErrorContext(ctx, errMsg.Error())
		return errMsg
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			cmd.logger.ErrorContext(ctx, fmt.Errorf("error shutting down OpenTelemetry: %w", err).Error())
		}
	}()
	tracelib.SetTracer(cmd.Command.Version)
	tracer := tracelib.Tracer()

	v, err := validator.New(cmd.cfg.ValidatorKind(), registry.NewDefaultRegistry())
	if err != nil {
		errMsg := fmt.Errorf("unable to initialize validator: %w", err)
		cmd.logger.ErrorContext(ctx, errMsg.Error())
		return errMsg
	}
	facade := queryengine.NewFacade(v, cmd.cfg.WorkerPoolSize)

	s, err := server.NewServer(cmd.cfg, facade, cmd.logger, tracer)
	if err != nil {
		errMsg := fmt.Errorf("query-engine failed to start: %w", err)
		cmd.logger.ErrorContext(ctx, errMsg.Error())
		return errMsg
	}
	l, err := s.Listen(ctx)
	if err != nil {
		errMsg := fmt.Errorf("query-engine failed to mount listener: %w", err)
		cmd.logger.ErrorContext(ctx, errMsg.Error())
		return errMsg
	}
	cmd.logger.InfoContext(ctx, "server ready to serve", "address", cmd.cfg.Address, "port", cmd.cfg.Port, "validator", cmd.cfg.ValidatorKind())
	if err := s.Serve(l); err != nil {
		errMsg := fmt.Errorf("query-engine crashed: %w", err)
		cmd.logger.ErrorContext(ctx, errMsg.Error())
		return errMsg
	}

	return nil
}
