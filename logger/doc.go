// Package logger provides structured logging for flowkit built on zerolog.
//
// A Logger carries a service name and optional component/flow fields. The flow
// engine logs through it: per-step records at debug level, and a warning when
// a transition tag is registered twice on the same node.
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "json"}, "flowkit")
//	log.WithComponent("flow").Info("run finished", logger.Fields("tag", "done"))
//
// Package-level helpers (Info, Warn, ...) delegate to a global logger that can
// be replaced with SetGlobalLogger.
package logger
