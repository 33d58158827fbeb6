// Package logger provides the process-wide structured logger.
// Request logging stays with the chi middleware; this logger covers
// lifecycle events, migrations and background publish failures.
package logger

import "go.uber.org/zap"

// New builds a production zap logger and returns its sugared form.
func New() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on invalid config; fall back to
		// a no-op logger rather than aborting startup.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
