package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitiveAPI lowercases the /api/<resource> prefix so that /API/PLANS/7
// and /api/plans/7 reach the same route. Barcode scanners in caps-lock mode send
// the former. Identifiers after the resource keep their case (fabric type ids are
// case sensitive) and paths outside /api are left alone.
func CaseInsensitiveAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		lower := strings.ToLower(path)
		switch {
		case lower == "/health":
			r.URL.Path = lower
		case strings.HasPrefix(lower, "/api/"):
			// /api/<resource>[/rest]
			end := len(path)
			if i := strings.IndexByte(path[len("/api/"):], '/'); i >= 0 {
				end = len("/api/") + i
			}
			r.URL.Path = lower[:end] + path[end:]
		}
		next.ServeHTTP(w, r)
	})
}
