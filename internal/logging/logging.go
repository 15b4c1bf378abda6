/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging configures the structured logger used across the engine.
//
// Code logs through github.com/go-logr/logr; the concrete sink is zap.
// Verbosity levels map onto logr V-levels:
//
//	logger.Info("allocation completed")             // INFO
//	logger.V(logging.DEBUG).Info("strategy outcome") // DEBUG
//	logger.V(logging.TRACE).Info("search progress")  // TRACE
package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logr verbosity levels
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

var (
	mu  sync.RWMutex
	log = logr.Discard()
)

// SetLogger sets the process-wide fallback logger.
func SetLogger(l logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// Log returns the process-wide fallback logger.
func Log() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// FromContext returns the logger carried by ctx, or the fallback logger.
func FromContext(ctx context.Context, keysAndValues ...any) logr.Logger {
	l, err := logr.FromContext(ctx)
	if err != nil {
		l = Log()
	}
	return l.WithValues(keysAndValues...)
}

// IntoContext returns a copy of ctx carrying the logger.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}

// ParseLevel converts a level name (info, debug, trace) into a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds a JSON zap-backed logr.Logger at the given level name.
func NewLogger(level string) (logr.Logger, error) {
	verbosity, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}
	cfg := zap.NewProductionConfig()
	// zap levels are negative logr verbosities
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	cfg.Sampling = nil
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger installs a human readable development logger at TRACE level
// as the fallback logger and returns it.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-TRACE))
	zl, err := cfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	l := zapr.NewLogger(zl)
	SetLogger(l)
	return l
}
