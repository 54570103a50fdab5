package configstore

import (
	"net/http"
	"strings"
)

// Authenticator resolves the requesting user. ok is false for anonymous
// requests.
type Authenticator func(r *http.Request) (userID string, ok bool)

// BearerTokens authenticates "Authorization: Bearer <token>" headers
// against a token to user id table.
func BearerTokens(tokens map[string]string) Authenticator {
	table := make(map[string]string, len(tokens))
	for token, user := range tokens {
		table[token] = user
	}
	return func(r *http.Request) (string, bool) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return "", false
		}
		user, ok := table[token]
		return user, ok
	}
}

func anonymous(*http.Request) (string, bool) { return "", false }
