// Package sslcommerz is a minimal client for the SSLCommerz hosted payment
// gateway: session creation, the transaction validation API, and the IPN
// verify-sign check. There is no official Go SDK, so the wire format
// follows the gateway's form-encoded HTTP API directly.
package sslcommerz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/config"
)

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"
)

var (
	ErrSessionFailed    = errors.New("gateway session creation failed")
	ErrValidationFailed = errors.New("gateway validation call failed")
)

type Client struct {
	storeID    string
	storePass  string
	baseURL    string
	successURL string
	failURL    string
	cancelURL  string
	ipnURL     string
	httpClient *http.Client
}

func New(cfg config.SSLCommerzConfig) *Client {
	baseURL := liveBaseURL
	if cfg.Sandbox {
		baseURL = sandboxBaseURL
	}
	return &Client{
		storeID:    cfg.StoreID,
		storePass:  cfg.StorePass,
		baseURL:    baseURL,
		successURL: cfg.SuccessURL,
		failURL:    cfg.FailURL,
		cancelURL:  cfg.CancelURL,
		ipnURL:     cfg.IPNURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateTranID produces a gateway transaction id in TXN-<16 hex> form.
func GenerateTranID() string {
	id := uuid.Must(uuid.NewV4())
	hexID := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("TXN-%s", hexID[:16])
}

// SessionRequest carries the order snapshot sent to the hosted page.
// Unset contact fields get the gateway's documented placeholders.
type SessionRequest struct {
	TotalAmount   decimal.Decimal
	TranID        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	AddressLine1  string
	AddressLine2  string
	City          string
	State         string
	PostalCode    string
	Country       string
	NumItems      int
}

type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePass)
	form.Set("total_amount", req.TotalAmount.StringFixed(2))
	form.Set("currency", "BDT")
	form.Set("tran_id", req.TranID)
	form.Set("success_url", c.successURL)
	form.Set("fail_url", c.failURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("ipn_url", c.ipnURL)
	form.Set("emi_option", "0")
	form.Set("cus_name", withDefault(req.CustomerName, "Guest"))
	form.Set("cus_email", withDefault(req.CustomerEmail, "guest@example.com"))
	form.Set("cus_phone", withDefault(req.CustomerPhone, "01700000000"))
	form.Set("cus_add1", req.AddressLine1)
	form.Set("cus_add2", req.AddressLine2)
	form.Set("cus_city", withDefault(req.City, "Dhaka"))
	form.Set("cus_state", req.State)
	form.Set("cus_postcode", req.PostalCode)
	form.Set("cus_country", withDefault(req.Country, "Bangladesh"))
	form.Set("shipping_method", "YES")
	form.Set("ship_name", withDefault(req.CustomerName, "Guest"))
	form.Set("ship_add1", req.AddressLine1)
	form.Set("ship_add2", req.AddressLine2)
	form.Set("ship_city", withDefault(req.City, "Dhaka"))
	form.Set("ship_state", req.State)
	form.Set("ship_postcode", req.PostalCode)
	form.Set("ship_country", withDefault(req.Country, "Bangladesh"))
	form.Set("num_of_item", fmt.Sprintf("%d", req.NumItems))
	form.Set("product_name", "Order Items")
	form.Set("product_category", "General")
	form.Set("product_profile", "general")

	endpoint := c.baseURL + "/gwprocess/v4/api.php"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: session request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp SessionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to decode session response: %w", err)
	}

	if !strings.EqualFold(resp.Status, "SUCCESS") || resp.GatewayPageURL == "" {
		log.Warn().Str("tran_id", req.TranID).Str("status", resp.Status).Str("reason", resp.FailedReason).Msg("sslcommerz: session rejected")
		return &resp, ErrSessionFailed
	}

	return &resp, nil
}

// ValidationResponse is the validator API's view of a transaction. Amount
// arrives as a string and must be compared as an exact decimal.
type ValidationResponse struct {
	Status   string `json:"status"`
	TranID   string `json:"tran_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// AmountDecimal parses the reported amount; a missing amount parses as 0,
// which can never equal a positive payment amount.
func (v *ValidationResponse) AmountDecimal() decimal.Decimal {
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func (c *Client) ValidateTransaction(ctx context.Context, valID string) (*ValidationResponse, error) {
	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", c.storeID)
	query.Set("store_passwd", c.storePass)
	query.Set("format", "json")

	endpoint := c.baseURL + "/validator/api/validationserverAPI.php?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to build validation request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: validation request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sslcommerz: validation API returned status %d: %w", httpResp.StatusCode, ErrValidationFailed)
	}

	var resp ValidationResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to decode validation response: %w", err)
	}

	return &resp, nil
}

// VerifyIPN checks the verify_sign the gateway attaches to server-to-server
// notifications: md5 of the verify_key fields plus the md5'd store password,
// assembled in sorted key order.
func (c *Client) VerifyIPN(form url.Values) bool {
	verifySign := form.Get("verify_sign")
	verifyKey := form.Get("verify_key")
	if verifySign == "" || verifyKey == "" {
		return false
	}

	fields := map[string]string{}
	for _, key := range strings.Split(verifyKey, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = form.Get(key)
	}

	passHash := md5.Sum([]byte(c.storePass))
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

	signHash := md5.Sum([]byte(strings.Join(pairs, "&")))
	expected := hex.EncodeToString(signHash[:])

	return strings.EqualFold(expected, verifySign)
}
