package httpserver

import (
	"net/http"
	"strconv"
	"strings"
)

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS validates Origin against an allowlist. Entries are exact origins or a
// single leading-label wildcard such as "https://*.vercel.app". Requests
// without an Origin pass through; unknown origins get 403.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	exact := map[string]bool{}
	var suffixes []originSuffix
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if scheme, host, ok := strings.Cut(o, "://*."); ok {
			suffixes = append(suffixes, originSuffix{scheme: scheme + "://", host: "." + host})
			continue
		}
		exact[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	allowed := func(origin string) bool {
		if exact[origin] {
			return true
		}
		for _, s := range suffixes {
			if rest, ok := strings.CutPrefix(origin, s.scheme); ok &&
				strings.HasSuffix(rest, s.host) && len(rest) > len(s.host) &&
				!strings.ContainsAny(rest[:len(rest)-len(s.host)], "/:@") {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(exact) == 0 && len(suffixes) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed(origin) {
				writeProblem(w, http.StatusForbidden, "Forbidden", "origin not allowed")
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)

			if r.Method == http.MethodOptions {
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type originSuffix struct {
	scheme string
	host   string
}
