// Package router assembles the gin engine of the order API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIVersion prefixes every authenticated route
const APIVersion = "v1"

// MountAPI creates /api/<version>, applies mw to it and registers groups beneath.
// Routes outside the returned group never see mw.
func MountAPI(engine *gin.Engine, version string, mw []gin.HandlerFunc, groups ...*DomainGroup) *gin.RouterGroup {
	api := engine.Group("/api/"+version, mw...)
	for _, g := range groups {
		g.RegisterRoutes(api)
	}
	return api
}

// DomainGroup is a declarative route table for one area of the API.
// Nothing touches gin until RegisterRoutes.
type DomainGroup struct {
	name   string
	prefix string
	mw     []gin.HandlerFunc
	routes []route
	subs   []*DomainGroup
}

type route struct {
	method, path string
	handlers     []gin.HandlerFunc
}

// NewDomainGroup declares a group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (g *DomainGroup) Name() string { return g.name }

// Use adds middleware for the group and its subgroups
func (g *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	g.mw = append(g.mw, mw...)
	return g
}

// Handle declares a route; GET, POST and PATCH are shorthands
func (g *DomainGroup) Handle(method, path string, h ...gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method, path, h})
	return g
}

func (g *DomainGroup) GET(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodGet, path, h...)
}

func (g *DomainGroup) POST(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPost, path, h...)
}

func (g *DomainGroup) PATCH(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPatch, path, h...)
}

// Group declares a nested group that inherits this group's middleware
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	g.subs = append(g.subs, sub)
	return sub
}

// RegisterRoutes materialises the table under parent
func (g *DomainGroup) RegisterRoutes(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.mw...)
	for _, r := range g.routes {
		rg.Handle(r.method, r.path, r.handlers...)
	}
	for _, sub := range g.subs {
		sub.RegisterRoutes(rg)
	}
}

// Routes lists "METHOD /prefix/path" for the group and its subgroups, for logging
func (g *DomainGroup) Routes() []string {
	var out []string
	g.walk("", func(method, path string) { out = append(out, method+" "+path) })
	return out
}

func (g *DomainGroup) walk(base string, visit func(method, path string)) {
	base += g.prefix
	for _, r := range g.routes {
		visit(r.method, base+r.path)
	}
	for _, sub := range g.subs {
		sub.walk(base, visit)
	}
}
