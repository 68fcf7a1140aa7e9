// Package log is a small wrapper around the standard library logger shared by
// the verba CLI and HTTP server. It provides:
//
//   - Named loggers via ForService(name), prefixed `[name]`
//   - Level helpers: Infof, Warnf, Errorf, Debugf
//   - Debug enabled globally (SetGlobalDebug) or per service
//     (EnableDebugFor / DisableDebugFor)
//   - A central output writer (SetOutput) that retargets existing loggers,
//     so tests can capture output in a bytes.Buffer
//
// Structured fields, JSON output and rotation are intentionally out of scope.
//
// Usage:
//
//	l := log.ForService("archive")
//	l.Infof("archived %d entries", n)
//	l.Debugf("raw response: %s", body) // only with debug enabled
//
// All exported functions are safe for concurrent use; the package relies on
// sync.Map and atomic primitives internally.
package log
