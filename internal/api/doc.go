// Package api exposes the screening service over HTTP. Handlers decode and
// validate requests, take the operator from the context set by the auth
// middleware, and map service errors to status codes with messages that
// never leak internal detail.
package api
