package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the key on write requests.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	apiKeys [][]byte
}

// NewAuthConfigWithKeys creates an AuthConfig. Empty keys are ignored; with
// no keys left authentication is disabled.
func NewAuthConfigWithKeys(apiKeys []string) AuthConfig {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return AuthConfig{apiKeys: keys}
}

// Enabled returns true if at least one key is configured.
func (c AuthConfig) Enabled() bool { return len(c.apiKeys) > 0 }

func (c AuthConfig) valid(key string) bool {
	candidate := []byte(key)
	for _, k := range c.apiKeys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid X-API-KEY on mutating methods. GET, HEAD and
// OPTIONS always pass, as does everything when authentication is disabled.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				WriteError(w, r, NewAuthenticationError("X-API-KEY header is required"), nil)
				return
			}
			if !config.valid(key) {
				WriteError(w, r, NewAuthenticationError("invalid API key"), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteProtectAuth builds WriteProtect from a list of keys.
func WriteProtectAuth(apiKeys []string) func(http.Handler) http.Handler {
	return WriteProtect(NewAuthConfigWithKeys(apiKeys))
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
