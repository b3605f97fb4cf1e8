// Package applog sets up the zap logger shared by the CLI front-ends
// and the storage package.
package applog

import "go.uber.org/zap"

// New builds a *zap.Logger suited to a short-lived CLI process:
// human-readable console output, no sampling, level controlled by
// debug. Errors from zap's own config plumbing are not expected in
// practice, but are returned rather than panicked on.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	return cfg.Build()
}
