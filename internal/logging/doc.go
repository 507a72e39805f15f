// Package logging provides structured logging for adanalyst.
//
// The package wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - automatic context fields (run.id, stage)
//   - secret redaction for sensitive keys and token-like values
//   - an observer-backed TestLogger for assertions
//
// Create a logger from the application config:
//
//	cfg, err := logging.ConfigFromSettings("info", "console")
//	logger, err := logging.NewLogger(cfg)
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRunID(ctx, "20250101T000000Z")
//	ctx = logging.WithStage(ctx, "insight_agent")
//	logger.Info(ctx, "stage completed", zap.Int("hypotheses", 3))
//
// Logs go to stderr so command output on stdout stays clean.
package logging
