// Package tools answers the function calls the remote assistant issues
// mid-conversation. Every request gets exactly one textual response.
package tools

import (
	"context"
	"runtime/debug"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GriffinCanCode/voiceorder/internal/cart"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Tool names declared to the remote assistant.
const (
	AddToOrder         = "addToOrder"
	RemoveFromOrder    = "removeFromOrder"
	ClearOrder         = "clearOrder"
	GetCartStatus      = "getCartStatus"
	ConfirmOrder       = "confirmOrder"
	QueryKnowledgeBase = "queryKnowledgeBase"
)

// Names lists the supported tools in declaration order.
var Names = []string{AddToOrder, RemoveFromOrder, ClearOrder, GetCartStatus, ConfirmOrder, QueryKnowledgeBase}

// Request is one function call. Args are untrusted.
type Request struct {
	ID   string
	Name string
	Args map[string]any
}

// Response carries the result text for the request with the same ID.
type Response struct {
	ID     string
	Name   string
	Result string
}

// Cart is the order collaborator mutated by tool calls.
type Cart interface {
	AddItem(ctx context.Context, p catalog.Product, qty int) error
	RemoveItem(ctx context.Context, productID string, qty int) error
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]cart.Item, error)
	Total(ctx context.Context) (int64, error)
}

// Resolver maps spoken product names to catalog products.
type Resolver interface {
	Resolve(text string) (catalog.Product, bool)
}

// Knowledge answers free-form questions from the knowledge base.
type Knowledge interface {
	Query(query string) string
}

// Navigator moves the surrounding application to checkout.
type Navigator interface {
	GoToCheckout(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) GoToCheckout(ctx context.Context) { f(ctx) }

// Deps are the collaborators bound once per session.
type Deps struct {
	Cart      Cart
	Resolver  Resolver
	Knowledge Knowledge
	Navigator Navigator
	Currency  string
	Language  language.Tag
}

// Dispatcher routes requests to handlers.
type Dispatcher struct {
	deps    Deps
	printer *message.Printer
	observe func(name string, failed bool)
}

// NewDispatcher binds collaborators for one session.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Currency == "" {
		deps.Currency = DefaultCurrency
	}
	if deps.Language == language.Und {
		deps.Language = language.English
	}
	if deps.Navigator == nil {
		deps.Navigator = NavigatorFunc(func(context.Context) {})
	}
	return &Dispatcher{deps: deps, printer: message.NewPrinter(deps.Language)}
}

// OnResult registers a callback invoked after every request (metrics).
func (d *Dispatcher) OnResult(fn func(name string, failed bool)) { d.observe = fn }

// Dispatch handles one request. It never fails: handler errors and panics
// become the technical error result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	ctx, span := trace.StartSpan(ctx, "tool_call")
	span.SetAttr("tool", req.Name)
	log := trace.Logger(ctx)
	resp = Response{ID: req.ID, Name: req.Name, Result: MsgTechnicalError}
	failed := true

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool handler panicked", "tool", req.Name, "panic", r, "stack", string(debug.Stack()))
			resp.Result = MsgTechnicalError
			failed = true
		}
		span.End()
		log.Debug("tool call done", "span", span, "failed", failed)
		if d.observe != nil {
			d.observe(req.Name, failed)
		}
	}()

	log.Info("tool call", "tool", req.Name, "id", req.ID, "args", req.Args)
	result, err := d.route(ctx, req)
	if err != nil {
		log.Error("tool call failed", "tool", req.Name, "error", err)
		return resp
	}
	resp.Result = result
	failed = false
	return resp
}

// DispatchBatch handles requests concurrently and calls reply once per
// request as each completes. It returns when all replies were made.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request, reply func(Response)) {
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			reply(d.Dispatch(ctx, req))
		}(req)
	}
	wg.Wait()
}

func (d *Dispatcher) route(ctx context.Context, req Request) (string, error) {
	args := req.Args
	switch req.Name {
	case AddToOrder:
		return d.addToOrder(ctx, String(args["itemName"]), Quantity(args["quantity"]))
	case RemoveFromOrder:
		return d.removeFromOrder(ctx, String(args["itemName"]), Quantity(args["quantity"]))
	case ClearOrder:
		return d.clearOrder(ctx)
	case GetCartStatus:
		return d.cartStatus(ctx)
	case ConfirmOrder:
		return d.confirmOrder(ctx)
	case QueryKnowledgeBase:
		return d.queryKnowledge(String(args["query"])), nil
	default:
		trace.Logger(ctx).Warn("unsupported tool", "tool", req.Name)
		return MsgUnsupported, nil
	}
}
