package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

type contextKey string

const identityKey contextKey = "viewer_identity"

// IdentityVerifier extracts the viewer identity from the request and stores
// it on the context. With a token auth configured, the identity is the "sub"
// claim of a verified JWT; without one (development), the X-Viewer-Identity
// header is trusted as-is. Requests with no resolvable identity proceed as
// the anonymous viewer, which unlocks only free articles.
func IdentityVerifier(tokenAuth *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokenAuth == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				viewer := publishing.Identity(r.Header.Get("X-Viewer-Identity"))
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), viewer)))
			})
		}

		verify := jwtauth.Verifier(tokenAuth)
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := publishing.ZeroIdentity
			if _, claims, err := jwtauth.FromContext(r.Context()); err == nil {
				if sub, ok := claims["sub"].(string); ok {
					viewer = publishing.Identity(sub)
				}
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), viewer)))
		}))
	}
}

// RequireIdentity rejects requests that resolved to the anonymous viewer.
// Write endpoints sit behind it; read endpoints do not.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Identity(r.Context()).IsZero() {
			http.Error(w, "identity required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context, viewer publishing.Identity) context.Context {
	return context.WithValue(ctx, identityKey, viewer)
}

// Identity returns the viewer identity resolved for this request, or
// ZeroIdentity when none was presented.
func Identity(ctx context.Context) publishing.Identity {
	if v, ok := ctx.Value(identityKey).(publishing.Identity); ok {
		return v
	}
	return publishing.ZeroIdentity
}
