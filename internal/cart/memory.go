package cart

import (
	"context"

	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/syncx"
)

// Memory is an in-process cart that keeps lines in insertion order.
type Memory struct {
	items *syncx.RWGuard[[]Item]
}

func NewMemory() *Memory {
	return &Memory{items: syncx.NewGuard[[]Item](nil)}
}

func (m *Memory) AddItem(_ context.Context, p catalog.Product, qty int) error {
	if p.ID == "" || qty <= 0 {
		return apperrors.New(apperrors.InvalidArgument, "cart: product and positive quantity required")
	}
	return m.items.Update(func(items *[]Item) error {
		for i := range *items {
			if (*items)[i].ProductID == p.ID {
				(*items)[i].Quantity += qty
				return nil
			}
		}
		*items = append(*items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Quantity:  qty,
		})
		return nil
	})
}

// RemoveItem lowers the quantity of a line, dropping it at zero.
func (m *Memory) RemoveItem(_ context.Context, productID string, qty int) error {
	if productID == "" || qty <= 0 {
		return apperrors.New(apperrors.InvalidArgument, "cart: product and positive quantity required")
	}
	return m.items.Update(func(items *[]Item) error {
		for i := range *items {
			if (*items)[i].ProductID != productID {
				continue
			}
			(*items)[i].Quantity -= qty
			if (*items)[i].Quantity <= 0 {
				*items = append((*items)[:i], (*items)[i+1:]...)
			}
			return nil
		}
		return apperrors.Newf(apperrors.InvalidArgument, "cart: %s not in cart", productID)
	})
}

func (m *Memory) Clear(context.Context) error {
	m.items.Set(nil)
	return nil
}

func (m *Memory) List(context.Context) ([]Item, error) {
	var out []Item
	m.items.View(func(items []Item) {
		out = append([]Item(nil), items...)
	})
	return out, nil
}

func (m *Memory) Total(ctx context.Context) (int64, error) {
	items, _ := m.List(ctx)
	return Total(items), nil
}
