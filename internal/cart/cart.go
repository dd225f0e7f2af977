// Package cart implements the cart collaborator used by voice tool calls:
// a REST client over the ordering backend and an in-process cart.
package cart

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/resilience"
)

// Item is one cart line.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Total sums price times quantity.
func Total(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

// API is the subset of the backend client the cart needs.
type API interface {
	Cart(ctx context.Context) ([]backend.CartItem, error)
	AddCartItem(ctx context.Context, productID string, quantity int) ([]backend.CartItem, error)
	AdjustCartItem(ctx context.Context, productID string, delta int) ([]backend.CartItem, error)
	ClearCart(ctx context.Context) error
}

// Client is the backend cart of the signed-in user.
type Client struct {
	api     API
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// NewClient wraps api with a breaker. Reads are retried; mutations are
// not, since a replayed add would double the quantity. A nil breaker gets a
// default one.
func NewClient(api API, breaker *resilience.Breaker) *Client {
	if breaker == nil {
		breaker = resilience.New(breakerName, resilience.CartConfig())
	}
	return &Client{api: api, breaker: breaker, retry: resilience.ConnectRetryConfig()}
}

func (c *Client) AddItem(ctx context.Context, p catalog.Product, qty int) error {
	if p.ID == "" || qty <= 0 {
		return apperrors.New(apperrors.InvalidArgument, "cart: product and positive quantity required")
	}
	_, err := resilience.ExecuteWithResult(c.breaker, func() ([]backend.CartItem, error) {
		return c.api.AddCartItem(ctx, p.ID, qty)
	})
	return err
}

func (c *Client) RemoveItem(ctx context.Context, productID string, qty int) error {
	if productID == "" || qty <= 0 {
		return apperrors.New(apperrors.InvalidArgument, "cart: product and positive quantity required")
	}
	_, err := resilience.ExecuteWithResult(c.breaker, func() ([]backend.CartItem, error) {
		return c.api.AdjustCartItem(ctx, productID, -qty)
	})
	return err
}

func (c *Client) Clear(ctx context.Context) error {
	return c.breaker.Execute(func() error { return c.api.ClearCart(ctx) })
}

func (c *Client) List(ctx context.Context) ([]Item, error) {
	rows, err := resilience.Call(ctx, c.breaker, c.retry, c.api.Cart)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.ID) == "" || r.Quantity <= 0 {
			continue
		}
		items = append(items, Item{
			ProductID: r.ID,
			Name:      r.Name,
			Category:  r.Category,
			Price:     r.Price,
			Quantity:  r.Quantity,
		})
	}
	return items, nil
}

func (c *Client) Total(ctx context.Context) (int64, error) {
	items, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	return Total(items), nil
}
