package main

import (
	"log"
	"os"
	"sort"

	"go.uber.org/zap"
)

// telemetryLogger receives structured beacons; human-readable logs stay on log
var telemetryLogger *zap.Logger

func init() {
	// Runs after 00_init.go so DEBUG and DISABLE_BEACONS may come from .env
	telemetryLogger = newTelemetryLogger()
}

func newTelemetryLogger() *zap.Logger {
	if os.Getenv("DISABLE_BEACONS") == "true" {
		return zap.NewNop()
	}

	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.InitialFields = map[string]interface{}{"service": "supportdesk"}
	if os.Getenv("DEBUG") == "true" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Printf("[beacon] Failed to build telemetry logger, beacons disabled: %v", err)
		return zap.NewNop()
	}
	return logger
}

// beacon emits one structured telemetry event. Message text never goes in
// fields; use generateSignature for correlation.
func beacon(event string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(keys)+1)
	zf = append(zf, zap.String("event", event))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	telemetryLogger.Info(event, zf...)
}
