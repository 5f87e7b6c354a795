// Package clients holds the thin HTTP clients for the engine's external
// collaborators: catalog/pricing, promotions, payment methods and delivery
// zones. The engine only depends on the interfaces in internal/pricing;
// these are the default wire implementations.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/checkout-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

type Client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) Client {
	return Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", path, resp.StatusCode)
	}
	if e2 := json.NewDecoder(resp.Body).Decode(out); e2 != nil {
		return fmt.Errorf("decode %s response: %w", path, e2)
	}
	return nil
}

var errNotFound = fmt.Errorf("collaborator returned not found")

// CatalogClient implements pricing.Catalog against the catalog service.
type CatalogClient struct {
	Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{newClient(baseURL, timeout)}
}

func (c *CatalogClient) UnitPrice(ctx context.Context, storeID int64, sku string) (decimal.Decimal, error) {
	var body struct {
		Price decimal.Decimal `json:"price"`
	}
	path := fmt.Sprintf("/api/v1/stores/%d/skus/%s/price", storeID, url.PathEscape(sku))
	err := c.getJSON(ctx, path, &body)
	if err == errNotFound {
		return decimal.Zero, pricing.ErrPriceNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return body.Price, nil
}

func (c *CatalogClient) TaxRate(ctx context.Context, storeID int64) (decimal.Decimal, error) {
	var body struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/stores/%d/tax-rate", storeID), &body); err != nil {
		return decimal.Zero, err
	}
	return body.Rate, nil
}

// PromotionsClient implements pricing.Promotions.
type PromotionsClient struct {
	Client
}

func NewPromotionsClient(baseURL string, timeout time.Duration) *PromotionsClient {
	return &PromotionsClient{newClient(baseURL, timeout)}
}

func (c *PromotionsClient) ValidateCode(ctx context.Context, code string, cartTotal decimal.Decimal) (pricing.PromoResult, error) {
	var body struct {
		Discount decimal.Decimal `json:"discount"`
		Rejected string          `json:"rejected,omitempty"`
	}
	path := fmt.Sprintf("/api/v1/promotions/%s/validate?cart_total=%s", url.PathEscape(code), cartTotal.String())
	err := c.getJSON(ctx, path, &body)
	if err == errNotFound {
		return pricing.PromoResult{Rejected: "unknown promo code"}, nil
	}
	if err != nil {
		return pricing.PromoResult{}, err
	}
	return pricing.PromoResult{Discount: body.Discount, Rejected: body.Rejected}, nil
}

// PaymentMethodsClient implements pricing.PaymentMethods.
type PaymentMethodsClient struct {
	Client
}

func NewPaymentMethodsClient(baseURL string, timeout time.Duration) *PaymentMethodsClient {
	return &PaymentMethodsClient{newClient(baseURL, timeout)}
}

func (c *PaymentMethodsClient) Resolve(ctx context.Context, paymentMethodID, ownerID string) (string, error) {
	var body struct {
		PaymentType string `json:"payment_type"`
		OwnerID     string `json:"owner_id"`
	}
	path := fmt.Sprintf("/api/v1/payment-methods/%s", url.PathEscape(paymentMethodID))
	err := c.getJSON(ctx, path, &body)
	if err == errNotFound {
		return "", pricing.ErrPaymentMethodNotFound
	}
	if err != nil {
		return "", err
	}
	if body.OwnerID != ownerID {
		return "", pricing.ErrPaymentMethodNotOwned
	}
	return body.PaymentType, nil
}

// DeliveryZonesClient implements pricing.DeliveryZones.
type DeliveryZonesClient struct {
	Client
}

func NewDeliveryZonesClient(baseURL string, timeout time.Duration) *DeliveryZonesClient {
	return &DeliveryZonesClient{newClient(baseURL, timeout)}
}

func (c *DeliveryZonesClient) DeliveryFee(ctx context.Context, storeID int64, zone string) (decimal.Decimal, error) {
	var body struct {
		Fee decimal.Decimal `json:"fee"`
	}
	path := fmt.Sprintf("/api/v1/stores/%d/zones/%s/delivery-fee", storeID, url.PathEscape(zone))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return decimal.Zero, err
	}
	return body.Fee, nil
}
