// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every handler should respond through these helpers so that all bodies
// share one envelope: a success flag, a message, and either data (with an
// optional warning) or a structured error.
package httputil
