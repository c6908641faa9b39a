// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON to stderr; development mode writes colored
// console output. Each domain component receives a named child logger:
//
//	logger := logging.NewFor(cfg.Logging.Level, cfg.Logging.Development)
//	nav := navigation.New(opts, loader, sched, logger.Component("navigation"), metrics)
//
// Components accept a nil *zap.Logger and substitute a no-op logger.
package logging
