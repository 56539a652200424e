// Package requestid propagates a correlation id through the request context.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eligo/pkg/requestcontext"
)

// Header carries the correlation id in both directions.
const Header = "X-Request-ID"

const maxLength = 128

// Middleware reuses a caller-supplied id when it looks sane, otherwise mints
// one, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLength || strings.ContainsAny(id, "\r\n") {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
