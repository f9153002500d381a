package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// requireKey guards a route group with the X-HRTAJ-<group>-Key header. An
// unset key lets requests through only in a development environment.
func (s *Server) requireKey(group, key string) func(http.Handler) http.Handler {
	header := "X-HRTAJ-" + group + "-Key"
	name := strings.ToLower(group)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				if s.cfg.Server.IsDev() {
					zap.L().Warn("api key not set; allowing access in dev", zap.String("group", name))
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusInternalServerError, codeMisconfigured, group+" API key is not configured.")
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(header)), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid "+name+" API key.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
