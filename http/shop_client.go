package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/babbage/go/funding"
)

// ============================================================================
// Purchase Service Client
// ============================================================================

// DefaultShopURL is the public satoshi shop
const DefaultShopURL = "https://satoshi-shop.babbage.systems"

// ShopConfig configures the purchase service client
type ShopConfig struct {
	// URL is the base URL of the purchase service (optional)
	URL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// AuthProvider provides authentication headers (optional)
	AuthProvider AuthProvider

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// ShopClient talks to the satoshi purchase service. Failed requests are never
// retried. It implements funding.Shop.
type ShopClient struct {
	t *transport
}

var _ funding.Shop = (*ShopClient)(nil)

// NewShopClient creates a purchase service client
func NewShopClient(config *ShopConfig) *ShopClient {
	if config == nil {
		config = &ShopConfig{}
	}
	t := newTransport(config.URL, DefaultShopURL, config.HTTPClient, config.Timeout, config.AuthProvider)

	// Purchase requests move money, a failure is left to the user.
	t.attempts = 1

	return &ShopClient{t: t}
}

// StartShopping fetches a quote and the purchases still awaiting delivery
func (c *ShopClient) StartShopping(ctx context.Context) (*funding.Quote, error) {
	var quote funding.Quote
	if err := c.call(ctx, "/startShopping", struct{}{}, quoteSchema, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// InitiateBuy starts a purchase under the quote in req
func (c *ShopClient) InitiateBuy(ctx context.Context, req funding.InitiateBuyRequest) (*funding.Purchase, error) {
	var purchase funding.Purchase
	if err := c.call(ctx, "/initiateBuy", req, purchaseSchema, &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// CompleteBuy asks the service to deliver a paid purchase
func (c *ShopClient) CompleteBuy(ctx context.Context, reference string) (*funding.CompletionStatus, error) {
	body := map[string]string{"reference": reference}

	var status funding.CompletionStatus
	if err := c.call(ctx, "/completeBuy", body, completionSchema, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// call posts req to path, validates the response against schema and
// decodes it into out
func (c *ShopClient) call(ctx context.Context, path string, req interface{}, schema gojsonschema.JSONLoader, out interface{}) error {
	body, err := c.t.postJSON(ctx, path, req, nil)
	if err != nil {
		return err
	}
	if err := validateResponse(schema, body); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	log.Tracef("%s response: %s", path, body)
	return nil
}
