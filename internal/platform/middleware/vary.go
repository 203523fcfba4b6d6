package middleware

import "net/http"

// Vary returns middleware that lists the request headers influencing the
// response. Accept selects JSON, CBOR, HTML or PNG; Accept-Language selects
// the poster date format. CORS adds Origin on its own.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r)
		})
	}
}
