package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/nkiryanov/pointd/internal/handlers/render"
)

// RecoverMiddleware turns a panic into generic 500 response, details go to the log only
func RecoverMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.Error("panic while handling request", "panic", rec, "uri", r.RequestURI, "stack", string(debug.Stack()))
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
