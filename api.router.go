package main

import (
	_ "github.com/jeamon/bookstore/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// NewMiddlewareMap builds the chains from the api handler stacks.
func (api *APIHandler) NewMiddlewareMap() *MiddlewareMap {
	public, ops := api.MiddlewaresStacks()
	return &MiddlewareMap{public: public.Chain, ops: ops.Chain}
}

// SetupRoutes injects book and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleMethodNotAllowed = false
	router.NotFound = api.NotFound()
	router.GlobalOPTIONS = CORSPreflightHandler()
	api.SetupBookRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	return router
}
