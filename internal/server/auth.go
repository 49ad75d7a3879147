package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/desertthunder/plugify/internal/shared"
)

type tokenKey struct{}

// Authenticate extracts the bearer credential from a raw Authorization header value.
//
// The scheme must be "Bearer" (any case) followed by a non-empty credential. Any other input
// yields a [*shared.UnauthorizedError]. The credential is not validated here.
func Authenticate(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", shared.NewUnauthorizedError(shared.ErrMissingCredentials)
	}

	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", shared.NewUnauthorizedError(shared.ErrInvalidArgument)
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", shared.NewUnauthorizedError(shared.ErrMissingCredentials)
	}
	return credential, nil
}

// RequireBearer rejects requests without a bearer credential with 401 and stores the credential
// in the request context for [TokenFromContext].
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			WriteDetail(w, http.StatusUnauthorized, shared.MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
	})
}

// WithToken returns a context carrying the bearer credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the credential stored by [RequireBearer].
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
