package httprouter

import (
	"net/http"

	"github.com/caasmo/gatekeeper/router"
	jshttprouter "github.com/julienschmidt/httprouter"
)

// Router implements router.Router on julienschmidt/httprouter.
type Router struct {
	rt *jshttprouter.Router
}

// New returns a router that never answers on its own: no trailing slash or
// case redirects and no 405. Whatever does not match an exact route goes to
// the NotFound handler.
func New() router.Router {
	rt := jshttprouter.New()
	rt.RedirectTrailingSlash = false
	rt.RedirectFixedPath = false
	rt.HandleMethodNotAllowed = false
	rt.HandleOPTIONS = false
	return &Router{rt: rt}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.rt.ServeHTTP(w, req)
}

func (r *Router) Handle(method, path string, handler http.Handler) {
	r.rt.Handler(method, path, handler)
}

func (r *Router) HandleFunc(method, path string, fn func(http.ResponseWriter, *http.Request)) {
	r.rt.HandlerFunc(method, path, fn)
}

func (r *Router) NotFound(handler http.Handler) {
	r.rt.NotFound = handler
}
