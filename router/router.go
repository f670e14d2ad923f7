package router

import (
	"net/http"
)

// Router is the HTTP multiplexer the front registers its endpoints on.
type Router interface {
	http.Handler

	// Handle registers h for the exact method and path.
	Handle(method, path string, h http.Handler)

	// HandleFunc is Handle for plain functions.
	HandleFunc(method, path string, fn func(http.ResponseWriter, *http.Request))

	// NotFound sets the handler for every request no route matches,
	// whatever its method.
	NotFound(h http.Handler)
}
