package catalog

import "time"

// Resolver scoring weights.
const (
	scoreExact       = 100
	scorePrefix      = 50
	scoreContains    = 30
	scoreNameToken   = 10
	scoreCategoryTok = 5
	minTokenLen      = 3 // tokens must be longer than 2 runes
)

// HTTP source defaults.
const (
	DefaultCacheTTL = 30 * time.Second
	cacheCleanup    = 10 * time.Minute
	menuCacheKey    = "menu"
)

// synonym rewrites one colloquial word to the keyword of a product family.
type synonym struct{ from, to string }

// Applied in order, first occurrence only.
var synonyms = []synonym{
	{"cola", "pepsi"},
	{"koka", "pepsi"},
	{"coke", "pepsi"},
	{"fanta", "pepsi"},
	{"sprite", "pepsi"},
	{"suv", "pepsi"},
	{"ichimlik", "pepsi"},
	{"fries", "fri"},
	{"kartoshka", "fri"},
	{"free", "fri"},
	{"tovuq", "basket"},
	{"chicken", "basket"},
	{"kanat", "basket"},
	{"qanot", "basket"},
	{"krilishki", "basket"},
	{"krilishka", "basket"},
	{"strips", "strips"},
	{"stripes", "strips"},
	{"burger", "shefburger"},
	{"cheeseburger", "shefburger"},
	{"lavash", "tvister"},
	{"roll", "tvister"},
	{"shirinlik", "ponchik"},
	{"desert", "ponchik"},
	{"donut", "ponchik"},
	{"longer", "longer"},
	{"boxmaster", "boxmaster"},
	{"boks", "boxmaster"},
}
