package http

import (
	"context"
	"time"

	"github.com/specialsearch/specialsearch/internal/auth"
	"github.com/specialsearch/specialsearch/internal/cache"
	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/http/handlers"
	"github.com/specialsearch/specialsearch/internal/http/middlewares"
	"github.com/specialsearch/specialsearch/internal/identity"
	"github.com/specialsearch/specialsearch/internal/observability"
	"github.com/specialsearch/specialsearch/internal/queue/redisclient"
	"github.com/specialsearch/specialsearch/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together; cmd/api builds it once
// at startup.
type Deps struct {
	Cfg      config.Config
	Pool     *pgxpool.Pool
	Redis    *redisclient.Client
	Prom     *observability.Prom
	JWT      *auth.Manager
	Provider identity.Provider
	Uploads  handlers.ImageStore
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("specialsearch-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSAllowedOrigins))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health + metrics

	pings := map[string]func() error{
		"db": func() error {
			if deps.Pool == nil {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			return deps.Pool.Ping(ctx)
		},
		"redis": func() error {
			if deps.Redis == nil {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			return deps.Redis.Ping(ctx)
		},
	}

	healthHandler := handlers.NewHealthHandler(pings)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// repositories

	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	resourcesRepo := postgres.NewResourcesRepo(deps.Pool, deps.Prom)
	reviewsRepo := postgres.NewReviewsRepo(deps.Pool, deps.Prom)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Prom)

	// handlers

	authHandler := handlers.NewAuthHandler(usersRepo, jobsRepo, deps.JWT, deps.Provider, deps.Cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo, deps.Provider, deps.Cfg)
	resourcesHandler := handlers.NewResourcesHandlerWithCache(resourcesRepo, cache.New(30*time.Second))
	reviewsHandler := handlers.NewReviewsHandler(reviewsRepo)
	contactHandler := handlers.NewContactHandler(jobsRepo)

	authMw := middlewares.NewAuthMiddleware(deps.JWT)

	// stricter windows on the endpoints that guess secrets
	var loginLimit, resetLimit gin.HandlerFunc

	if deps.Redis != nil {
		loginLimiter := middlewares.NewRateLimiter(deps.Redis.Raw(), 10, time.Minute)
		resetLimiter := middlewares.NewRateLimiter(deps.Redis.Raw(), 5, 15*time.Minute)

		loginLimit = loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP)
		resetLimit = resetLimiter.RateLimiterMiddleware(middlewares.KeyByIP)
	} else {
		passthrough := func(c *gin.Context) { c.Next() }
		loginLimit = passthrough
		resetLimit = passthrough
	}

	api := r.Group("/api")

	users := api.Group("/users", middlewares.MaxBodyBytes(1<<20))
	{
		users.POST("/register", middlewares.RequireJSON(), authHandler.Register)
		users.POST("/login", middlewares.RequireJSON(), loginLimit, authHandler.Login)
		users.POST("/logout", authHandler.Logout)
		users.GET("/me", authMw.RequireSession(), authHandler.Me)
		users.POST("/forgot-password", middlewares.RequireJSON(), resetLimit, authHandler.ForgotPassword)
		users.PATCH("/reset-password", middlewares.RequireJSON(), resetLimit, authHandler.ResetPassword)
		users.POST("/verify-password", middlewares.RequireJSON(), authMw.RequireSession(), authHandler.VerifyPassword)
		users.POST("/check-email", middlewares.RequireJSON(), authHandler.CheckEmail)

		users.GET("/:userId", authMw.RequireSession(), usersHandler.GetUser)
		users.PATCH("/:userId", middlewares.RequireJSON(), authMw.RequireSession(), authMw.RequireSelf("userId"), usersHandler.UpdateUser)
		users.GET("/:userId/favorites", authMw.RequireSession(), authMw.RequireSelf("userId"), usersHandler.GetFavorites)
		users.PATCH("/:userId/favorites", middlewares.RequireJSON(), authMw.RequireSession(), authMw.RequireSelf("userId"), usersHandler.ToggleFavorite)
	}

	resources := api.Group("/resources", middlewares.MaxBodyBytes(1<<20))
	{
		resources.GET("", resourcesHandler.ListResources)
		resources.POST("", middlewares.RequireJSON(), authMw.RequireSession(), resourcesHandler.CreateResource)
		resources.GET("/:id", resourcesHandler.GetResource)
		resources.PATCH("/:id", middlewares.RequireJSON(), authMw.RequireSession(), resourcesHandler.UpdateResource)
		resources.DELETE("/:id", authMw.RequireSession(), resourcesHandler.DeleteResource)
	}

	reviews := api.Group("/reviews", middlewares.MaxBodyBytes(1<<20))
	{
		reviews.GET("", reviewsHandler.ListReviews)
		reviews.POST("", middlewares.RequireJSON(), authMw.RequireSession(), reviewsHandler.CreateReview)
		reviews.GET("/:resourceId", reviewsHandler.ListResourceReviews)
	}

	api.POST("/contact", middlewares.MaxBodyBytes(1<<20), middlewares.RequireJSON(), contactHandler.SubmitContact)

	if deps.Uploads != nil {
		uploadsHandler := handlers.NewUploadsHandler(deps.Uploads)
		api.POST("/upload", middlewares.MaxBodyBytes(10<<20), authMw.RequireSession(), uploadsHandler.Upload)
	}

	return r
}
