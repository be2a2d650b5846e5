package validators

import "strings"

// BearerToken strips an optional "Bearer " prefix from an Authorization header.
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
