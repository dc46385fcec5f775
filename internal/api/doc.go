// Package api is the HTTP surface: turn intake, SSE frame encoding,
// chat deletion, history listing, health probes, and the middleware
// stack (recovery, request id, logging, CORS, rate limiting, user
// provisioning). Error-to-status mapping lives here and nowhere else.
package api
