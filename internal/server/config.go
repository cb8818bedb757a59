package server

import (
	"fmt"
	"strings"
)

// ServerConfig is the query engine's configuration: a listen
// address/port, the validator version switch, the worker pool size and
// the logging options. Port and the validator switch can also be set
// from the PORT and USE_LEGACY_VALIDATOR environment variables.
type ServerConfig struct {
	// Version is the server's reported version string.
	Version string
	// Address is the interface the server listens on.
	Address string
	// Port is the port the server listens on.
	Port int
	// UseLegacyValidator selects the v1 validator when true, v2 (the
	// default) otherwise.
	UseLegacyValidator bool
	// WorkerPoolSize bounds request concurrency; <= 0 uses
	// queryengine.DefaultConcurrency.
	WorkerPoolSize int
	// LoggingFormat defines whether structured logging is used.
	LoggingFormat logFormat
	// LogLevel defines the minimum level to log.
	LogLevel StringLevel
}

// ValidatorKind returns the validator.New kind string this config
// selects.
func (c ServerConfig) ValidatorKind() string {
	if c.UseLegacyValidator {
		return "v1"
	}
	return "v2"
}

type logFormat string

// String is used by both fmt.Print and by Cobra in help text.
func (f *logFormat) String() string {
	if string(*f) != "" {
		return strings.ToLower(string(*f))
	}
	return "standard"
}

// Set validates the logging format flag.
func (f *logFormat) Set(v string) error {
	switch strings.ToLower(v) {
	case "standard", "json":
		*f = logFormat(v)
		return nil
	default:
		return fmt.Errorf(`log format must be one of "standard", or "json"`)
	}
}

// Type is used in Cobra help text.
func (f *logFormat) Type() string {
	return "logFormat"
}

type StringLevel string

// String is used by both fmt.Print and by Cobra in help text.
func (s *StringLevel) String() string {
	if string(*s) != "" {
		return strings.ToLower(string(*s))
	}
	return "info"
}

// Set validates the log level flag.
func (s *StringLevel) Set(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		*s = StringLevel(v)
		return nil
	default:
		return fmt.Errorf(`log level must be one of "debug", "info", "warn", or "error"`)
	}
}

// Type is used in Cobra help text.
func (s *StringLevel) Type() string {
	return "stringLevel"
}
