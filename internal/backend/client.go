// Package backend provides a client for the ordering backend's REST API:
// menu, knowledge base, cart and live-token endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// MenuItem is a product row from GET /api/menu.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// CartItem is a cart row; the backend expands product fields inline.
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// LiveToken is the response of GET /api/ai/live-token.
type LiveToken struct {
	Token      string `json:"token"`
	Model      string `json:"model"`
	ExpireTime string `json:"expireTime,omitempty"`
}

// Client wraps all backend endpoints behind one HTTP client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a backend client. token is sent as a bearer credential.
func New(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

// Menu fetches the public menu.
func (c *Client) Menu(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if err := c.do(ctx, http.MethodGet, pathMenu, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Knowledge fetches the knowledge base text.
func (c *Client) Knowledge(ctx context.Context) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, pathKnowledge, nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// LiveToken requests a single-use credential for the speech service.
func (c *Client) LiveToken(ctx context.Context) (LiveToken, error) {
	var tok LiveToken
	if err := c.do(ctx, http.MethodGet, pathLiveToken, nil, &tok); err != nil {
		return LiveToken{}, err
	}
	if tok.Token == "" {
		return LiveToken{}, apperrors.New(apperrors.CredentialDenied, "live token response without token")
	}
	return tok, nil
}

type cartEnvelope struct {
	Items []CartItem `json:"items"`
}

// Cart returns the current cart contents.
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	var env cartEnvelope
	err := c.do(ctx, http.MethodGet, pathCart, nil, &env)
	return env.Items, err
}

// AddCartItem adds quantity of a product and returns the updated cart.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) ([]CartItem, error) {
	var env cartEnvelope
	body := map[string]any{"productId": productID, "quantity": quantity}
	err := c.do(ctx, http.MethodPost, pathCartItems, body, &env)
	return env.Items, err
}

// AdjustCartItem changes a product's quantity by delta and returns the updated cart.
func (c *Client) AdjustCartItem(ctx context.Context, productID string, delta int) ([]CartItem, error) {
	var env cartEnvelope
	path := pathCartItems + "/" + url.PathEscape(productID)
	err := c.do(ctx, http.MethodPatch, path, map[string]any{"delta": delta}, &env)
	return env.Items, err
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, pathCart, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.InvalidArgument, "encode request")
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return apperrors.Wrap(err, apperrors.InvalidArgument, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if tc, ok := trace.FromContext(ctx); ok {
		trace.Inject(req.Header, tc)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.FromHTTPStatus(resp.StatusCode, errorMessage(data)).WithMetadata("path", path)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrapf(err, apperrors.ProtocolError, "decode %s", path)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failure body, else the raw text.
func errorMessage(data []byte) string {
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &env) == nil && env.Error != "" {
		return env.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
