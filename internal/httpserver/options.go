package httpserver

import (
	"net/http"

	"github.com/agentsystems/notary-bundler/internal/log"
)

// Options configures the public ingest-facing HTTP server. Health,
// readiness and /metrics live on the separate admin server
// (internal/opshttp); this one only ever serves notary routes
// registered by a RouteRegistrar (internal/ingest.Handler).
type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func() // Optional callback for when panics are recovered, e.g. to trigger alerts or increment prometheus counters, etc.
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
}
