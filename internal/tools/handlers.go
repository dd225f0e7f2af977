package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/voiceorder/internal/cart"
	"github.com/GriffinCanCode/voiceorder/internal/knowledge"
)

func (d *Dispatcher) addToOrder(ctx context.Context, itemName string, qty int) (string, error) {
	name := strings.TrimSpace(stripQuotes(itemName))
	if name == "" {
		return MsgNameMissing, nil
	}
	product, ok := d.deps.Resolver.Resolve(name)
	if !ok {
		return fmt.Sprintf(msgNotOnMenu, name), nil
	}
	if err := d.deps.Cart.AddItem(ctx, product, qty); err != nil {
		return "", err
	}
	return fmt.Sprintf(msgAdded, qty, product.Name), nil
}

// removeFromOrder matches the cart line whose name contains the query,
// then the line whose name the query contains, then the resolved product.
func (d *Dispatcher) removeFromOrder(ctx context.Context, itemName string, qty int) (string, error) {
	name := strings.TrimSpace(itemName)
	if name == "" {
		return MsgNameMissing, nil
	}
	items, err := d.deps.Cart.List(ctx)
	if err != nil {
		return "", err
	}

	search := strings.ToLower(name)
	target, ok := findLine(items, func(it cart.Item) bool {
		return strings.Contains(strings.ToLower(it.Name), search)
	})
	if !ok {
		target, ok = findLine(items, func(it cart.Item) bool {
			return it.Name != "" && strings.Contains(search, strings.ToLower(it.Name))
		})
	}
	if !ok {
		if product, found := d.deps.Resolver.Resolve(name); found {
			target, ok = findLine(items, func(it cart.Item) bool { return it.ProductID == product.ID })
		}
	}
	if !ok {
		return fmt.Sprintf(msgNotInCart, name), nil
	}

	if err := d.deps.Cart.RemoveItem(ctx, target.ProductID, qty); err != nil {
		return "", err
	}
	return fmt.Sprintf(msgRemoved, qty, target.Name), nil
}

func (d *Dispatcher) clearOrder(ctx context.Context) (string, error) {
	if err := d.deps.Cart.Clear(ctx); err != nil {
		return "", err
	}
	return MsgCartCleared, nil
}

func (d *Dispatcher) cartStatus(ctx context.Context) (string, error) {
	items, err := d.deps.Cart.List(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return MsgCartEmpty, nil
	}
	total, err := d.deps.Cart.Total(ctx)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%dx %s", it.Quantity, it.Name)
	}
	return d.printer.Sprintf(msgCartSummary, strings.Join(lines, ", "), total, d.deps.Currency), nil
}

func (d *Dispatcher) confirmOrder(ctx context.Context) (string, error) {
	items, err := d.deps.Cart.List(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return MsgConfirmEmpty, nil
	}
	d.deps.Navigator.GoToCheckout(ctx)
	return MsgCheckout, nil
}

func (d *Dispatcher) queryKnowledge(query string) string {
	if d.deps.Knowledge == nil {
		return knowledge.EmptyBase
	}
	return d.deps.Knowledge.Query(strings.TrimSpace(query))
}

func findLine(items []cart.Item, match func(cart.Item) bool) (cart.Item, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	return cart.Item{}, false
}

func stripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(nameQuotes, r) {
			return -1
		}
		return r
	}, s)
}
