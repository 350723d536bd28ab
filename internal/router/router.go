package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/dkoleva/enterprise-accounts/internal/handler"
	"github.com/dkoleva/enterprise-accounts/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware. Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register, login
	// and the two refresh variants.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication; a refresh token in the
	// body identifies the session to terminate.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "EDITOR"))
	auth.GET("/me", a.Me)

	// Alias so clients can call either /v1/auth/logout or /v1/logout.
	e.POST("/v1/logout", a.Logout)
}

// catalogRoutes maps each taxonomy kind to its route prefix under /api.
var catalogRoutes = map[string]string{
	"enterprise": "/enterprises",
	"product":    "/products",
	"service":    "/services",
	"template":   "/templates",
}

// RegisterAPI registers the account and taxonomy endpoints under /api. All
// routes require a valid access token; destructive taxonomy operations and
// account deletion additionally require the ADMIN role. The cache
// middleware is applied to catalog reads only, which are the hot path when
// many table clients load their dropdown options.
func RegisterAPI(e *echo.Echo, cat *handler.CatalogHandler, acc *handler.AccountHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "EDITOR"),
	)

	adminOnly := middleware.RequireRole("ADMIN")

	// ---- Taxonomy catalogs ----
	for kind, path := range catalogRoutes {
		g.GET(path, cat.List(kind), cache)
		g.POST(path, cat.Create(kind))
		g.PUT(path+"/:id", cat.Rename(kind), adminOnly)
		g.DELETE(path+"/:id", cat.Delete(kind), adminOnly)
	}

	// ---- Accounts ----
	g.GET("/accounts", acc.List)
	g.PUT("/accounts", acc.Upsert)
	g.POST("/accounts", acc.Create)
	g.DELETE("/accounts/:id", acc.Delete, adminOnly)
}
