package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore"
)

// RequireFreshIdentity re-reads the principal's identity from the store and
// rejects the request with 401 when it no longer exists. The principal in
// the context is replaced by one built from the stored record, so role
// changes take effect before the access token expires.
func RequireFreshIdentity(resolver authcore.IdentityResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := authcore.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ident, err := resolver.CurrentIdentity(r.Context(), p)
			if err != nil {
				if authcore.IsKind(err, authcore.KindAuthentication) {
					writeError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				log.Error().Err(err).Msg("identity re-hydration failed")
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(authcore.WithPrincipal(r.Context(), ident.Principal())))
		})
	}
}
