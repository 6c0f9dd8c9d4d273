// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/priyanshu-verma600/notekeeper/internal/models"
	"github.com/priyanshu-verma600/notekeeper/internal/signing"
)

type ctxKey string

const identityKey ctxKey = "identity"

// maxBodyBytes bounds the request bodies read for signature checks.
const maxBodyBytes = 1 << 16

// SignatureAuth is a middleware that authenticates the caller by an ed25519
// request signature (see package signing).
//
// The request body is read, checked against the signature and restored for
// the next handler. On success the verified identity is stored in the
// request context; otherwise the request is rejected with 401.
func SignatureAuth(maxSkew time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			if err != nil {
				http.Error(w, "cannot read body", http.StatusBadRequest)
				return
			}
			if len(body) > maxBodyBytes {
				http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			id, err := signing.Verify(r, body, time.Now(), maxSkew)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext extracts the verified caller identity from the
// request context. ok is false if the request was not authenticated.
func GetIdentityFromContext(ctx context.Context) (id models.Identity, ok bool) {
	id, ok = ctx.Value(identityKey).(models.Identity)
	return id, ok
}
