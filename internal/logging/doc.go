// Package logging builds the zap logger shared by the CLI and libraries.
//
// Production mode writes JSON, development mode writes colored console
// lines. Both write to stderr by default because `nodeshim build` prints the
// bundle on stdout.
//
// Libraries never construct a logger themselves. They accept a *zap.Logger
// through an option and default to zap.NewNop().
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Sync()
//	res, err := bundle.Build(ctx, bundle.Options{EntryPoint: entry, Logger: logger.Logger})
package logging
