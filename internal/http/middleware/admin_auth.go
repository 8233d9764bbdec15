package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AdminAuth guards the Smoobu admin endpoints. A request passes with
// either a matching X-Admin-Token header or a Bearer JWT signed with
// jwtSecret (HMAC). Everything else gets 403, the same answer whether
// the credential is missing or wrong.
func AdminAuth(adminToken, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminToken == "" && jwtSecret == "" {
				forbidden(w)
				return
			}
			if adminToken != "" {
				got := r.Header.Get("X-Admin-Token")
				if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(adminToken)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			if jwtSecret != "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					tokenString := strings.TrimPrefix(auth, "Bearer ")
					claims := jwt.RegisteredClaims{}
					token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
						if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
							return nil, jwt.ErrSignatureInvalid
						}
						return []byte(jwtSecret), nil
					})
					if err == nil && token.Valid {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			forbidden(w)
		})
	}
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"forbidden"}`))
}
