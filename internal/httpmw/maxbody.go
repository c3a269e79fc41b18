// internal/httpmw/maxbody.go

package httpmw

import "net/http"

// MaxBody limits request body size. Reading past the limit fails with
// *http.MaxBytesError; the handler chooses the response status.
func MaxBody(bytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, bytes)
			next.ServeHTTP(w, r)
		})
	}
}
