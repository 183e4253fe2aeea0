// Package kit is the small transport-agnostic endpoint layer shared by the
// HTTP and MCP transports: every API action is an Endpoint, and both
// transports decode into the same request types and dispatch to the same
// functions.
package kit

import "context"

// Endpoint is one transport-agnostic API action (resolve, card, stats...).
type Endpoint func(ctx context.Context, request any) (response any, err error)

// Middleware wraps an Endpoint with a cross-cutting concern such as request
// logging.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first is outermost.
// Chain(a, b, c)(endpoint) == a(b(c(endpoint)))
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(others) - 1; i >= 0; i-- {
			next = others[i](next)
		}
		return outer(next)
	}
}
