package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ski_resort_finder/internal/adapters/observability"
)

const timeoutBody = `{"type":"about:blank","title":"Service Unavailable","status":503,` +
	`"detail":"search timed out","error":"search timed out"}`

// Timeout answers 503 with a problem body when a request overruns d. d must
// exceed the search deadline so searches fail with their own error first.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}

// recorder keeps the status and body size a handler wrote.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		observability.ObserveHTTP(routeOf(r), r.Method, rec.code(), time.Since(start))
	})
}

// Logger puts a request-scoped logger carrying request_id into the request
// context, so search logs (search_id) join the http_request line, and writes
// that line once the handler returns. 5xx responses log at error level.
func Logger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg := base.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
			r = r.WithContext(lg.WithContext(r.Context()))

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			ev := lg.Info()
			if rec.code() >= http.StatusInternalServerError {
				ev = lg.Error()
			}
			ev.Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", rec.code()).
				Int("bytes", rec.bytes).
				Dur("duration", time.Since(start)).
				Str("remote", clientHost(r.RemoteAddr)).
				Str("origin", r.Header.Get("Origin")).
				Msg("http_request")
		})
	}
}

// clientHost strips the port; chimw.RealIP has already applied
// X-Forwarded-For / X-Real-IP to RemoteAddr.
func clientHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
