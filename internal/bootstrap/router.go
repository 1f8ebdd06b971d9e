package bootstrap

import (
	"context"

	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/asso-lecture/asso-backend/internal/api/http/middleware"
	"github.com/asso-lecture/asso-backend/internal/auth"
	authmw "github.com/asso-lecture/asso-backend/internal/auth/middleware"
	"github.com/asso-lecture/asso-backend/internal/books"
	"github.com/asso-lecture/asso-backend/internal/children"
	"github.com/asso-lecture/asso-backend/internal/loans"
	"github.com/asso-lecture/asso-backend/internal/projects"
	"github.com/asso-lecture/asso-backend/internal/users"
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	ServiceName string
	App         *App
	Verifier    auth.Verifier
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	app := dep.App
	cfg := app.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(app.Log))
	r.Use(middleware.CORS(cfg.CORS.FrontendURL))
	r.Use(middleware.Metrics(app.Metrics))

	checks := map[string]httpapi.Pinger{"store": app.Store.Ping, "redis": nil}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	httpapi.NewHealthHandler(dep.ServiceName, cfg.App.Version, checks).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	limit := middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, app.Metrics)
	public := r.Group("/api", limit)

	api := r.Group("/api", limit)
	api.Use(authmw.Authenticate(dep.Verifier, cfg.Auth.CookieName, app.Log))

	accounts := users.NewService(app.Store, app.Rules, app.Log)
	users.Register(api.Group("/users"), accounts)
	users.RegisterRequests(public.Group("/users"), api.Group("/users"), users.NewRequestService(app.Store, accounts, app.Log))
	projects.Register(api.Group("/projects"), projects.NewService(app.Store, app.Rules, app.Log))
	children.Register(api.Group("/childProfiles"), children.NewService(app.Store, app.Rules, app.Log))
	books.Register(api.Group("/books"), books.NewService(app.Store, app.Rules, app.Log))
	loans.Register(api.Group("/bookLoans"), loans.NewService(app.Store, app.Rules, app.Log))

	httpapi.NewMaintenanceHandler(app.Repairer, app.Reporter).Register(api.Group("/maintenance"))

	return r
}
