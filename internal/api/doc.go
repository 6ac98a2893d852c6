// Package api serves the JSON API for agents that reach mission control over
// HTTP instead of the mc CLI. Handlers decode and validate requests, call the
// service layer, and map service errors onto HTTP status codes and the same
// error kinds the CLI reports.
package api
