package http

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/customer"
)

const (
	sessionCookie  = "sf_session"
	customerCookie = "sf_customer"
	paymentCookie  = "sf_payment_type"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext returns the identity resolved by SessionMiddleware.
// Requests that bypass the middleware count as anonymous without a key.
func IdentityFromContext(ctx context.Context) cart.Identity {
	if identity, ok := ctx.Value(identityContextKey).(cart.Identity); ok {
		return identity
	}
	return cart.Identity{Kind: cart.IdentitySession}
}

func newSessionKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to serve.
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func signValue(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return value + "." + hex.EncodeToString(mac.Sum(nil))
}

func verifyValue(secret, signed string) (string, bool) {
	idx := strings.LastIndex(signed, ".")
	if idx < 0 {
		return "", false
	}
	value, sig := signed[:idx], signed[idx+1:]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", false
	}
	return value, true
}

// SessionMiddleware guarantees every request carries an anonymous session
// key (creating the cookie on first contact, so carts are never keyed by
// an empty session id) and resolves the acting identity: authenticated
// customer, staff, or anonymous session.
func SessionMiddleware(customers customer.Service, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionKey := ""
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				sessionKey = cookie.Value
			}
			if sessionKey == "" {
				sessionKey = newSessionKey()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sessionKey,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			identity := cart.SessionIdentity(sessionKey)

			if cookie, err := r.Cookie(customerCookie); err == nil {
				if raw, ok := verifyValue(secret, cookie.Value); ok {
					if customerID, parseErr := uuid.FromString(raw); parseErr == nil {
						if c, loadErr := customers.GetByID(r.Context(), customerID); loadErr == nil {
							if c.IsStaff {
								identity = cart.StaffIdentity()
							} else {
								identity = cart.CustomerIdentity(c.ID)
							}
						} else {
							log.Warn().Err(loadErr).Msg("Failed to load customer for session, falling back to anonymous")
						}
					}
				}
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setCustomerCookie(w http.ResponseWriter, secret string, customerID uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     customerCookie,
		Value:    signValue(secret, customerID.String()),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCustomerCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     customerCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
