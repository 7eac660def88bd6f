// Package auth holds the opaque session token scheme: generation, the
// digest stored at rest, and extraction from HTTP requests.
package auth

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/zeebo/blake3"
)

// TokenBytes is the amount of randomness in a session token; the token
// itself is its hex encoding.
const TokenBytes = 16

// GenerateToken returns a fresh random session token.
func GenerateToken() (string, error) {
	return common.MakeRandHexString(TokenBytes)
}

// HashToken returns the digest under which token is stored. Lookups go
// through the digest, so a leaked table does not leak live sessions.
func HashToken(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the session token from r. A non-empty
// "Authorization: Bearer" header wins over the query-string fallback.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		if tok := strings.TrimSpace(h[len(common.BearerPrefix):]); tok != "" {
			return tok, true
		}
	}

	if tok := strings.TrimSpace(r.URL.Query().Get(common.TokenQueryParam)); tok != "" {
		return tok, true
	}

	return "", false
}
