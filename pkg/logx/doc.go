// Package logx wraps zerolog behind a small structured-logging facade.
//
// Components receive a Logger value; the zero value is a safe no-op, so
// packages never need nil checks. The Service owns the configured sinks
// (console and optional JSON file) and can be re-applied at runtime when the
// config file changes without invalidating loggers already handed out.
package logx
