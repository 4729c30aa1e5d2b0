package sslcommerz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		storeID:    "teststore",
		storePass:  "testpass",
		baseURL:    baseURL,
		successURL: "https://shop.example.com/payments/sslcommerz/success",
		failURL:    "https://shop.example.com/payments/sslcommerz/fail",
		cancelURL:  "https://shop.example.com/payments/sslcommerz/cancel",
		ipnURL:     "https://shop.example.com/payments/sslcommerz/ipn",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestGenerateTranID(t *testing.T) {
	pattern := regexp.MustCompile(`^TXN-[0-9A-F]{16}$`)
	assert.Regexp(t, pattern, GenerateTranID())
	assert.NotEqual(t, GenerateTranID(), GenerateTranID())
}

func TestCreateSession_Success(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gwprocess/v4/api.php", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(SessionResponse{
			Status:         "SUCCESS",
			SessionKey:     "sess-key-1",
			GatewayPageURL: "https://sandbox.sslcommerz.com/EasyCheckOut/test",
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	resp, err := client.CreateSession(context.Background(), SessionRequest{
		TotalAmount: decimal.RequireFromString("1000.00"),
		TranID:      "TXN-AA11BB22CC33DD44",
		City:        "Chattogram",
		NumItems:    2,
	})

	require.NoError(t, err)
	require.Equal(t, "https://sandbox.sslcommerz.com/EasyCheckOut/test", resp.GatewayPageURL)

	assert.Equal(t, "teststore", gotForm.Get("store_id"))
	assert.Equal(t, "1000.00", gotForm.Get("total_amount"))
	assert.Equal(t, "BDT", gotForm.Get("currency"))
	assert.Equal(t, "TXN-AA11BB22CC33DD44", gotForm.Get("tran_id"))
	assert.Equal(t, "Chattogram", gotForm.Get("cus_city"))
	// Unset contact fields fall back to the documented placeholders.
	assert.Equal(t, "Guest", gotForm.Get("cus_name"))
	assert.Equal(t, "guest@example.com", gotForm.Get("cus_email"))
	assert.Equal(t, "01700000000", gotForm.Get("cus_phone"))
	assert.Equal(t, "Bangladesh", gotForm.Get("cus_country"))
	assert.Equal(t, "2", gotForm.Get("num_of_item"))
}

func TestCreateSession_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SessionResponse{
			Status:       "FAILED",
			FailedReason: "store credential error",
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.CreateSession(context.Background(), SessionRequest{
		TotalAmount: decimal.RequireFromString("1000.00"),
		TranID:      "TXN-AA11BB22CC33DD44",
	})

	require.ErrorIs(t, err, ErrSessionFailed)
}

func TestCreateSession_SuccessWithoutURLFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SessionResponse{Status: "SUCCESS"})
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.CreateSession(context.Background(), SessionRequest{
		TotalAmount: decimal.RequireFromString("1000.00"),
		TranID:      "TXN-AA11BB22CC33DD44",
	})

	require.ErrorIs(t, err, ErrSessionFailed)
}

func TestValidateTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/validator/api/validationserverAPI.php", r.URL.Path)
		require.Equal(t, "val-1", r.URL.Query().Get("val_id"))
		require.Equal(t, "teststore", r.URL.Query().Get("store_id"))
		json.NewEncoder(w).Encode(ValidationResponse{
			Status:   "VALID",
			TranID:   "TXN-AA11BB22CC33DD44",
			Amount:   "1000.00",
			Currency: "BDT",
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	resp, err := client.ValidateTransaction(context.Background(), "val-1")
	require.NoError(t, err)
	assert.Equal(t, "VALID", resp.Status)
	assert.True(t, resp.AmountDecimal().Equal(decimal.RequireFromString("1000.00")))
}

func TestValidateTransaction_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.ValidateTransaction(context.Background(), "val-1")
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidationResponseAmountDecimal(t *testing.T) {
	missing := ValidationResponse{}
	assert.True(t, missing.AmountDecimal().Equal(decimal.Zero))

	garbled := ValidationResponse{Amount: "not-a-number"}
	assert.True(t, garbled.AmountDecimal().Equal(decimal.Zero))

	exact := ValidationResponse{Amount: "1000.00"}
	assert.True(t, exact.AmountDecimal().Equal(decimal.RequireFromString("1000.00")))
}

// signForm computes the verify_sign the way the gateway documents it: md5
// over the verify_key fields plus the md5'd store password, in sorted key
// order, joined as k=v&.
func signForm(form url.Values, storePass string) string {
	fields := map[string]string{}
	for _, key := range strings.Split(form.Get("verify_key"), ",") {
		fields[key] = form.Get(key)
	}
	passHash := md5.Sum([]byte(storePass))
	fields["store_passwd"] = hex.EncodeToString(passHash[:])

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}
	sum := md5.Sum([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(sum[:])
}

func TestVerifyIPN(t *testing.T) {
	client := testClient("http://unused")

	form := url.Values{}
	form.Set("tran_id", "TXN-AA11BB22CC33DD44")
	form.Set("val_id", "val-1")
	form.Set("amount", "1000.00")
	form.Set("status", "VALID")
	form.Set("verify_key", "amount,status,tran_id,val_id")
	form.Set("verify_sign", signForm(form, "testpass"))

	assert.True(t, client.VerifyIPN(form))

	// Any field covered by verify_key invalidates the signature when changed.
	tampered := url.Values{}
	for k, v := range form {
		tampered[k] = v
	}
	tampered.Set("amount", "9999.00")
	assert.False(t, client.VerifyIPN(tampered))

	// Signatures are accepted case-insensitively.
	upper := url.Values{}
	for k, v := range form {
		upper[k] = v
	}
	upper.Set("verify_sign", strings.ToUpper(form.Get("verify_sign")))
	assert.True(t, client.VerifyIPN(upper))
}

func TestVerifyIPN_MissingSign(t *testing.T) {
	client := testClient("http://unused")

	form := url.Values{}
	form.Set("tran_id", "TXN-AA11BB22CC33DD44")
	assert.False(t, client.VerifyIPN(form))

	form.Set("verify_sign", "deadbeef")
	// A sign without a verify_key is also rejected.
	assert.False(t, client.VerifyIPN(form))
}

func TestVerifyIPN_WrongStorePassword(t *testing.T) {
	client := testClient("http://unused")

	form := url.Values{}
	form.Set("tran_id", "TXN-AA11BB22CC33DD44")
	form.Set("amount", "1000.00")
	form.Set("verify_key", "amount,tran_id")
	form.Set("verify_sign", signForm(form, "someotherpass"))

	assert.False(t, client.VerifyIPN(form))
}
