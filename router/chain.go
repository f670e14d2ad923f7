package router

import (
	"net/http"
)

// Chain is a handler with the middlewares wrapped around it and the
// observers run after it.
type Chain struct {
	handler     http.Handler
	middlewares []func(http.Handler) http.Handler
	observers   []http.Handler
}

// NewChain panics on a nil handler.
func NewChain(h http.Handler) *Chain {
	if h == nil {
		panic("chain handler cannot be nil")
	}
	return &Chain{
		handler:     h,
		middlewares: make([]func(http.Handler) http.Handler, 0),
		observers:   make([]http.Handler, 0),
	}
}

// WithMiddleware adds middlewares that run in the given order, the first one
// outermost:
//
//	.WithMiddleware(recorder, metrics, blockIp)
//
// runs recorder, then metrics, then blockIp, then the handler. Calls
// accumulate, later calls wrap inside earlier ones.
func (c *Chain) WithMiddleware(middlewares ...func(http.Handler) http.Handler) *Chain {
	for _, mw := range middlewares {
		c.middlewares = append([]func(http.Handler) http.Handler{mw}, c.middlewares...)
	}
	return c
}

// WithObservers adds handlers run after the chain, even when a middleware
// answered early. Observers must not write to the response.
func (c *Chain) WithObservers(observers ...http.Handler) *Chain {
	c.observers = append(c.observers, observers...)
	return c
}

// Handler returns the final handler with all middlewares and observers applied
func (c *Chain) Handler() http.Handler {
	handler := c.handler

	for _, mw := range c.middlewares {
		handler = mw(handler)
	}

	if len(c.observers) == 0 {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handler.ServeHTTP(w, req)

		for _, obs := range c.observers {
			obs.ServeHTTP(w, req)
		}
	})
}
