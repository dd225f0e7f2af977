// Package catalog holds the read-only menu snapshot a voice session works
// against, the fuzzy product resolver, and the sources that supply snapshots.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Product is a menu item as served by the ordering backend.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Price       int64  `json:"price" yaml:"price"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Snapshot is the catalog and knowledge text captured at session start.
type Snapshot struct {
	Products  []Product `json:"products" yaml:"products"`
	Knowledge string    `json:"knowledge" yaml:"knowledge"`
}

// Source supplies snapshots. Implementations may cache.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

func (f SourceFunc) Snapshot(ctx context.Context) (Snapshot, error) { return f(ctx) }

// ByID returns the product with the given id.
func (s Snapshot) ByID(id string) (Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// MenuList renders products one per line as `- "Name" (Category)`.
func (s Snapshot) MenuList() string {
	var b strings.Builder
	for i, p := range s.Products {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %q (%s)", p.Name, p.Category)
	}
	return b.String()
}
