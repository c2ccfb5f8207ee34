package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// publicPaths never require a bearer token.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/metrics": {},
}

// wrapWithAuth enforces bearer-token auth when apiKey or jwtSecret is
// non-empty: a request passes with the API key or an HMAC-signed JWT. With
// neither configured the server is open, matching local/dev usage.
func wrapWithAuth(next http.Handler, apiKey, jwtSecret string, log *logrus.Logger) http.Handler {
	if apiKey == "" && jwtSecret == "" {
		if log != nil {
			log.Warn("no KLOCK_API_KEY or KLOCK_JWT_SECRET set; server is open")
		}
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			unauthorized(w)
			return
		}
		if apiKey != "" && token == apiKey {
			next.ServeHTTP(w, r)
			return
		}
		if jwtSecret != "" && validJWT(token, jwtSecret) {
			next.ServeHTTP(w, r)
			return
		}

		if log != nil {
			log.WithField("path", r.URL.Path).Warn("unauthorized request")
		}
		unauthorized(w)
	})
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func validJWT(token, secret string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	return err == nil && parsed.Valid
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
