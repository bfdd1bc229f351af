// Package httputil provides the shared JSON response and request-body
// helpers used by every handler, so all endpoints produce the same
// envelope shapes and error structure.
package httputil
