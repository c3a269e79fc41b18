package httpmw

import (
	"fmt"
	"net/http"

	"github.com/agentsystems/notary-bundler/internal/log"
	"github.com/agentsystems/notary-bundler/internal/xerrors"
)

// Recover returns middleware that recovers from a panic in the handler
// chain, logs it with a stack trace via logger, invokes the optional
// onPanic callback (e.g. to increment a metrics counter), and serves a
// generic 500 response. onPanic may be nil.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if onPanic != nil {
						onPanic()
					}

					var err error
					switch v := rec.(type) {
					case error:
						err = v
					default:
						err = fmt.Errorf("%v", v)
					}

					logger.With("method", r.Method, "path", r.URL.Path).
						Error(r.Context(), xerrors.WithStack(err), "httpserver panic recovered")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
