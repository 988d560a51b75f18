package middleware

import "net/http"

// NoCache marks every response as not cacheable, so a browser always fetches
// a freshly annotated artifact and result page.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
