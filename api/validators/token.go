package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if len(token) >= 6 && strings.EqualFold(token[:6], "bearer") {
		token = strings.TrimSpace(token[6:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}
