// Package respond writes RFC 9457 problem details for responses produced
// outside Huma operations: router fallbacks, recovered panics and raw
// handlers. The body shape matches huma.ErrorModel so clients see one error
// format everywhere, in JSON or CBOR depending on Accept.
package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/lostcat/internal/platform/logging"
)

const (
	schemaPath = "/schemas/ErrorModel.json"

	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	msgNotFound         = "resource not found"
	msgMethodNotAllowed = "method not allowed"
	msgInternal         = "internal server error"
)

// problem mirrors huma.ErrorModel plus the $schema link Huma adds to its own responses.
type problem struct {
	Schema string              `json:"$schema,omitempty"`
	Title  string              `json:"title,omitempty"`
	Status int                 `json:"status,omitempty"`
	Detail string              `json:"detail,omitempty"`
	Errors []*huma.ErrorDetail `json:"errors,omitempty"`
}

// WriteProblem renders a problem response with the given status and detail.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string, details ...*huma.ErrorDetail) {
	schema := schemaURL(r)
	p := problem{
		Schema: schema,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Errors: details,
	}

	h := w.Header()
	ensureVary(h, "Origin", "Accept")
	h.Set("Link", fmt.Sprintf("<%s>; rel=\"describedBy\"", schema))

	var (
		body []byte
		err  error
	)
	if selectFormat(r.Header.Get("Accept")) {
		h.Set("Content-Type", contentTypeProblemCBOR)
		body, err = cbor.Marshal(p)
	} else {
		h.Set("Content-Type", contentTypeProblemJSON)
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		err = enc.Encode(p)
		body = buf.Bytes()
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err, zap.Int("status", status))
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		applog.LogWarn(r.Context(), "failed to write problem", zap.Error(err))
	}
}

// WriteRedirect sets Location and writes the redirect status without a body.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string, code int) {
	http.Redirect(w, r, location, code)
}

// NotFoundHandler emits a problem-details 404 response.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler emits a problem-details 405 response with Allow.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		WriteProblem(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Recoverer converts panics into problem-details 500 responses.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
// Nothing is written when the handler already sent headers.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				if errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				applog.LogError(r.Context(), "panic recovered", err,
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				if rw.wroteHeader {
					return
				}
				WriteProblem(rw, r, http.StatusInternalServerError, msgInternal)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter records whether the header was sent.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// schemaURL builds an absolute link to the error schema served by Huma.
func schemaURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + schemaPath
}

// ensureVary adds each value to Vary unless it is already listed.
func ensureVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			seen[strings.ToLower(strings.TrimSpace(part))] = struct{}{}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		h.Add("Vary", v)
	}
}

// allowedMethods inspects chi's routing context to discover allowed methods.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		if r.URL.RawPath != "" {
			routePath = r.URL.RawPath
		} else {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

type acceptRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges. Malformed or
// out-of-range q values count as 1.0; a bare type means type/*.
func parseAccept(header string) []acceptRange {
	var ranges []acceptRange
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		params := strings.Split(part, ";")
		mediaType := strings.ToLower(strings.TrimSpace(params[0]))
		typ, subtype, ok := strings.Cut(mediaType, "/")
		if !ok {
			subtype = "*"
		}
		ar := acceptRange{typ: strings.TrimSpace(typ), subtype: strings.TrimSpace(subtype), q: 1.0}
		for _, param := range params[1:] {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(key) != "q" {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || q < 0 || q > 1 {
				q = 1.0
			}
			ar.q = q
		}
		ranges = append(ranges, ar)
	}
	return ranges
}

// specificity scores how closely a range names application/<format>.
// It returns -1 when the range does not match.
func specificity(ar acceptRange, format string) int {
	if ar.typ == "*" && ar.subtype == "*" {
		return 0
	}
	if ar.typ != "application" {
		return -1
	}
	switch ar.subtype {
	case "*":
		return 1
	case "*+" + format:
		return 2
	case format:
		return 3
	case "problem+" + format:
		return 4
	default:
		return -1
	}
}

// preference returns the q value and specificity of the most specific
// range matching the format.
func preference(ranges []acceptRange, format string) (float64, int) {
	bestQ, bestSpec := 0.0, -1
	for _, ar := range ranges {
		spec := specificity(ar, format)
		if spec < 0 {
			continue
		}
		if spec > bestSpec || (spec == bestSpec && ar.q > bestQ) {
			bestQ, bestSpec = ar.q, spec
		}
	}
	return bestQ, bestSpec
}

// selectFormat reports whether CBOR should be used. JSON wins ties.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	jsonQ, jsonSpec := preference(ranges, "json")
	cborQ, cborSpec := preference(ranges, "cbor")
	if cborQ <= 0 || cborSpec < 0 {
		return false
	}
	if cborQ != jsonQ {
		return cborQ > jsonQ
	}
	return cborSpec > jsonSpec
}
