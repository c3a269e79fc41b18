// Package httpmw provides HTTP middleware for the public-facing server.
//
// Middleware is composed in a specific order in httpserver.NewHandler:
// security headers, panic recovery (when enabled), request ID, client IP
// extraction, OTEL tracing, trace ID response headers, rate limiting,
// metrics, structured logging, and the chi router (which adds compression,
// route annotation and access logging).
//
// Each middleware is an independent function that can be tested, reordered,
// or removed individually. User-supplied data (query params, user-agent,
// headers) is intentionally excluded from logs to prevent PII leaks and
// log injection.
package httpmw
