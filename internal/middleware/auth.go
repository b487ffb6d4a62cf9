package middleware

import (
	"net/http"
	"strings"

	"github.com/bloghive/bloghive/pkg"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const bearerPrefix = "Bearer "

// TokenVerifier is a pure check of the token signature and expiry,
// it must not consult the document store.
type TokenVerifier interface {
	Verify(token string) (primitive.ObjectID, error)
}

type AuthMiddlewareHandler struct {
	verifier    TokenVerifier
	publicPaths map[string]bool
}

func NewAuthMiddlewareHandler(verifier TokenVerifier) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		verifier: verifier,
		publicPaths: map[string]bool{
			// auth handler:
			"/api/auth/register": true,
			"/api/auth/login":    true,

			// misc:
			"/api/version": true,
		},
	}
}

func (h *AuthMiddlewareHandler) requestIsPublic(r *http.Request) bool {
	// the protected surface is mutations only, every GET route is public
	if r.Method == http.MethodGet {
		return true
	}
	return h.publicPaths[r.URL.Path]
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				return
			}

			if h.requestIsPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			// check the header presence explicitly, an absent header must
			// yield a clean 401, never a dereference crash
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}

			token := strings.TrimPrefix(authHeader, bearerPrefix)
			userID, err := h.verifier.Verify(token)
			if err != nil {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Tracef("[invalid token] [auth middleware] unauthorized request from %s => %s", reqIp, r.URL.Path)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "Token is not valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(
				ContextWithUserID(r.Context(), userID),
			))
		})
	}
}
