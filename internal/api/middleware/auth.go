// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/core"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

var (
	errNoKey    = errors.New("missing " + APIKeyHeader + " header or bearer token")
	errWrongKey = errors.New("api key rejected")
)

// APIKeyAuth returns middleware that validates the X-API-Key header, or an
// "Authorization: Bearer" token. If apiKey is empty, authentication is
// disabled.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := providedKey(r)
			if provided == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="tradelab"`)
				response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrConfigMissing, errNoKey))
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrConfigInvalid, errWrongKey))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func providedKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
