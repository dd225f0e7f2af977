package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Resolver maps free text spoken by a customer to a catalog product.
type Resolver struct {
	products []Product
	names    []string
	cats     []string
}

// NewResolver precomputes normalized names over a snapshot's products.
func NewResolver(products []Product) *Resolver {
	r := &Resolver{
		products: products,
		names:    make([]string, len(products)),
		cats:     make([]string, len(products)),
	}
	for i, p := range products {
		r.names[i] = Normalize(p.Name)
		r.cats[i] = Normalize(p.Category)
	}
	return r
}

// Resolve returns the best scoring product. Ties keep catalog order.
func (r *Resolver) Resolve(text string) (Product, bool) {
	query := applySynonyms(Normalize(text))
	if query == "" {
		return Product{}, false
	}
	tokens := searchTokens(query)

	best, bestScore := -1, 0
	for i := range r.products {
		if s := score(r.names[i], r.cats[i], query, tokens); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return Product{}, false
	}
	return r.products[best], true
}

func score(name, category, query string, tokens []string) int {
	s := 0
	if name == query {
		s += scoreExact
	}
	if strings.HasPrefix(name, query) {
		s += scorePrefix
	}
	if strings.Contains(name, query) {
		s += scoreContains
	}
	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			s += scoreNameToken
		}
		if strings.Contains(category, tok) {
			s += scoreCategoryTok
		}
	}
	return s
}

// Normalize lowercases s and deletes everything except ASCII letters,
// digits, Cyrillic and whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x0400 && r <= 0x04FF:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func applySynonyms(s string) string {
	for _, syn := range synonyms {
		if strings.Contains(s, syn.from) {
			s = strings.Replace(s, syn.from, syn.to, 1)
		}
	}
	return s
}

func searchTokens(s string) []string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}
