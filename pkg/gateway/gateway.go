// Package gateway wraps the grpc-gateway runtime mux with HTTP middleware
// chaining and route grouping for the REST API.
package gateway

import (
	"net/http"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"github.com/helix-works/skillflow/pkg/logger"
)

// HTTPMiddlewareFunc wraps a handler at the gateway level.
type HTTPMiddlewareFunc func(http.HandlerFunc) http.HandlerFunc

// Gateway is an http.Handler routing through a grpc-gateway ServeMux.
type Gateway struct {
	mux        *gwruntime.ServeMux
	middleware []HTTPMiddlewareFunc
}

// New creates a gateway with the given mux options.
func New(opts ...gwruntime.ServeMuxOption) *Gateway {
	return &Gateway{mux: gwruntime.NewServeMux(opts...)}
}

// Mux returns the underlying ServeMux.
func (gw *Gateway) Mux() *gwruntime.ServeMux {
	return gw.mux
}

// Use adds middleware applied to every request.
func (gw *Gateway) Use(middleware ...HTTPMiddlewareFunc) {
	gw.middleware = append(gw.middleware, middleware...)
}

// ServeHTTP dispatches through the middleware chain into the mux.
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := func(w http.ResponseWriter, r *http.Request) {
		gw.mux.ServeHTTP(w, r)
	}
	for i := len(gw.middleware) - 1; i >= 0; i-- {
		h = gw.middleware[i](h)
	}
	h(w, r)
}

// Group registers routes under a shared path prefix.
type Group struct {
	prefix string
	gw     *Gateway
}

// Group creates a route group with the given prefix.
func (gw *Gateway) Group(prefix string) *Group {
	return &Group{prefix: prefix, gw: gw}
}

// GET registers a GET route.
func (g *Group) GET(path string, h gwruntime.HandlerFunc) {
	g.add(http.MethodGet, path, h)
}

// POST registers a POST route.
func (g *Group) POST(path string, h gwruntime.HandlerFunc) {
	g.add(http.MethodPost, path, h)
}

// PUT registers a PUT route.
func (g *Group) PUT(path string, h gwruntime.HandlerFunc) {
	g.add(http.MethodPut, path, h)
}

// DELETE registers a DELETE route.
func (g *Group) DELETE(path string, h gwruntime.HandlerFunc) {
	g.add(http.MethodDelete, path, h)
}

func (g *Group) add(method, path string, h gwruntime.HandlerFunc) {
	if err := g.gw.mux.HandlePath(method, g.prefix+path, h); err != nil {
		logger.Fatalf("Failed to register route %s %s: %v", method, g.prefix+path, err)
	}
}
