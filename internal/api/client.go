// Package api implements the typed HTTP client for the Ckryptbit backend.
// The backend is an opaque REST collaborator reached over a shared envelope
// format; this package hides the wire details and exposes domain-typed
// operations to the service layer.
//
// Every response is normalized into the envelope shape {success, data,
// message}. Some backend endpoints return the envelope explicitly and some
// return the payload bare; both are accepted, matching the tolerant parsing
// of earlier console generations.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
// Console flows that hit it mid-session tear down local session state and
// return the operator to the login view.
var ErrUnauthorized = errors.New("backend rejected session token")

// TokenProvider supplies the current backend bearer token.
// An empty string means the console holds no session.
type TokenProvider interface {
	Token() string
}

// TokenFunc adapts a plain function to the TokenProvider interface.
type TokenFunc func() string

// Token implements TokenProvider.
func (f TokenFunc) Token() string { return f() }

// CallRecorder receives the outcome of every backend round trip.
// Wired to the Prometheus backend-call metrics; nil disables recording.
type CallRecorder func(method, endpoint string, status int, duration time.Duration)

// Client is the typed Ckryptbit backend client.
// All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	record     CallRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
// Used by tests to point the client at an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCallRecorder installs a recorder for backend round trip metrics.
func WithCallRecorder(r CallRecorder) Option {
	return func(c *Client) { c.record = r }
}

// NewClient creates a backend client from configuration.
// The token provider is consulted on every protected call, so a login that
// happens after construction is picked up automatically.
//
// Example:
//
//	client := api.NewClient(&cfg.Backend, api.TokenFunc(session.CurrentToken))
func NewClient(cfg *config.BackendConfig, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the wire shape shared with the backend. Success is a pointer
// so a bare payload (no "success" key) can be told apart from an explicit
// envelope.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do executes one backend round trip. Protected calls attach the bearer
// token when one is held; a protected call without a token is logged and
// sent anyway so the backend's 401 remains the single source of truth.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}, protected bool) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if protected {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			log.Warn().
				Str("method", method).
				Str("endpoint", endpoint).
				Msg("Protected backend call without token")
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.record != nil {
			c.record(method, endpoint, 0, time.Since(start))
		}
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if c.record != nil {
		c.record(method, endpoint, resp.StatusCode, time.Since(start))
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("read backend response: %w", readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, endpoint, ErrUnauthorized)
	}

	// The body is either an explicit envelope or the bare payload. Decoding
	// into the envelope first surfaces the markers; failure here just means
	// the body is bare (an array, say) and is handled below.
	var env envelope
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		log.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("endpoint", endpoint).
			Str("message", msg).
			Msg("Backend call failed")
		return errors.New(msg)
	}

	// Explicit envelope with success=false on a 2xx still counts as failure.
	if envErr == nil && env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "backend reported failure"
		}
		return errors.New(msg)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	// Envelope responses carry the payload under "data".
	if envErr == nil && (env.Success != nil || env.Data != nil) {
		if env.Data == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode backend payload: %w", err)
		}
		return nil
	}

	// No envelope markers: the body is the payload itself.
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// Login authenticates against the backend and returns the issued token and
// user. Login is unprotected; no bearer token is attached.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result models.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a new backend account and returns the issued token and
// user, mirroring Login.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var result models.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", payload, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProducts fetches the full product catalog. The catalog is public;
// no token is attached.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products, false); err != nil {
		return nil, err
	}
	return products, nil
}

// AddProduct creates a catalog product. Admin only; the backend enforces
// authorization from the bearer token.
func (c *Client) AddProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	var created models.Product
	if err := c.do(ctx, http.MethodPost, "/products", product, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProduct replaces an existing catalog product. Admin only.
func (c *Client) UpdateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	var updated models.Product
	endpoint := "/products/" + product.ID
	if err := c.do(ctx, http.MethodPut, endpoint, product, &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct removes a catalog product. Admin only.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+productID, nil, nil, true)
}

// ProcessCheckout submits the cart for purchase. The backend materializes
// pentest orders for service items and generated assets for digital items.
func (c *Client) ProcessCheckout(ctx context.Context, items []models.CartItem) (*models.CheckoutResult, error) {
	payload := map[string]interface{}{"cartItems": items}
	var result models.CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/checkout", payload, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchMyOrders returns the authenticated user's pentest orders.
func (c *Client) FetchMyOrders(ctx context.Context) ([]models.PentestOrder, error) {
	var orders []models.PentestOrder
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchAllOrdersAdmin returns every pentest order in the system. Admin only.
func (c *Client) FetchAllOrdersAdmin(ctx context.Context) ([]models.PentestOrder, error) {
	var orders []models.PentestOrder
	if err := c.do(ctx, http.MethodGet, "/orders/admin/all", nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

// SubmitTargetInfo attaches engagement target details to an order and
// returns the updated order.
func (c *Client) SubmitTargetInfo(ctx context.Context, orderID string, info models.PentestTargetInfo) (*models.PentestOrder, error) {
	var order models.PentestOrder
	endpoint := fmt.Sprintf("/orders/%s/target-info", orderID)
	if err := c.do(ctx, http.MethodPut, endpoint, info, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatusAdmin transitions an order's status and optionally
// records admin notes. Admin only.
func (c *Client) UpdateOrderStatusAdmin(ctx context.Context, orderID string, status models.PentestStatus, adminNotes string) (*models.PentestOrder, error) {
	payload := map[string]interface{}{"status": status}
	if adminNotes != "" {
		payload["adminNotes"] = adminNotes
	}
	var order models.PentestOrder
	endpoint := fmt.Sprintf("/orders/admin/%s/status", orderID)
	if err := c.do(ctx, http.MethodPut, endpoint, payload, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// NotifyCustomerAdmin marks the order's latest admin update as communicated
// to the customer. Admin only.
func (c *Client) NotifyCustomerAdmin(ctx context.Context, orderID string) (*models.PentestOrder, error) {
	var order models.PentestOrder
	endpoint := fmt.Sprintf("/orders/admin/%s/notify", orderID)
	if err := c.do(ctx, http.MethodPost, endpoint, nil, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// SubmitFeedback records customer feedback on a completed engagement and
// returns the updated order.
func (c *Client) SubmitFeedback(ctx context.Context, orderID string, feedback models.CustomerFeedback) (*models.PentestOrder, error) {
	var order models.PentestOrder
	endpoint := fmt.Sprintf("/orders/%s/feedback", orderID)
	if err := c.do(ctx, http.MethodPost, endpoint, feedback, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchMyAssets returns the authenticated user's acquired digital assets.
// Asset content generation happens during checkout on the backend.
func (c *Client) FetchMyAssets(ctx context.Context) ([]models.AcquiredDigitalAsset, error) {
	var assets []models.AcquiredDigitalAsset
	if err := c.do(ctx, http.MethodGet, "/digital-assets/my-assets", nil, &assets, true); err != nil {
		return nil, err
	}
	return assets, nil
}

// GenerateBlueprint asks the AI proxy to produce a project blueprint for
// the given technology selections.
func (c *Client) GenerateBlueprint(ctx context.Context, selections models.TechSelections) (*models.ParsedBlueprint, error) {
	payload := map[string]interface{}{"selections": selections}
	var blueprint models.ParsedBlueprint
	if err := c.do(ctx, http.MethodPost, "/ai/generate-blueprint", payload, &blueprint, true); err != nil {
		return nil, err
	}
	return &blueprint, nil
}

// SendChatMessage relays one chat turn to the AI proxy and returns the
// structured response.
func (c *Client) SendChatMessage(ctx context.Context, req models.ChatRequest) (*models.AiChatResponse, error) {
	var response models.AiChatResponse
	if err := c.do(ctx, http.MethodPost, "/ai/chat", req, &response, true); err != nil {
		return nil, err
	}
	return &response, nil
}

// PurgeMyData asks the backend to erase the user's server-side data.
// Returns the backend's confirmation message.
func (c *Client) PurgeMyData(ctx context.Context) (string, error) {
	var result struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/purge-my-data", nil, &result, true); err != nil {
		return "", err
	}
	return result.Message, nil
}
