package http

import (
	"net/http"

	"github.com/gofrs/uuid"
)

// SetCustomerCookieForTest exposes the signed login cookie to package tests.
func SetCustomerCookieForTest(w http.ResponseWriter, secret string, customerID uuid.UUID) {
	setCustomerCookie(w, secret, customerID)
}
