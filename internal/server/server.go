// Package server assembles the HTTP surface: middleware, services and every
// route group under /api.
package server

import (
	"database/sql"

	"bookameal/internal/auth"
	"bookameal/internal/carts"
	"bookameal/internal/catalog"
	"bookameal/internal/common"
	"bookameal/internal/env"
	"bookameal/internal/events"
	"bookameal/internal/logging"
	"bookameal/internal/metrics"
	"bookameal/internal/notifications"
	"bookameal/internal/orders"
	"bookameal/internal/pagination"
	"bookameal/internal/revenue"
	"bookameal/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the server is built from
type Deps struct {
	DB        *sql.DB
	Log       logrus.FieldLogger
	Publisher events.Publisher
	Config    env.Config
}

// Server is the wired application
type Server struct {
	Engine *gin.Engine
	Users  *users.Service
	Tokens *auth.TokenStore
}

func New(d Deps) *Server {
	limits := pagination.Limits{DefaultSize: d.Config.DefaultPageSize, MaxSize: d.Config.MaxPageSize}
	message := d.Config.MenuPublishedMessage
	if message == "" {
		message = env.DefaultMenuPublishedMessage
	}

	// Auth
	tokens := auth.NewTokenStore(auth.NewRepository(d.DB), d.Config.TokenDuration)
	authMiddleware := auth.NewMiddleware(tokens, auth.NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst))

	// Services
	userSvc := users.NewService(d.DB, d.Publisher, tokens, logging.Component(d.Log, "users"))
	dispatcher := notifications.NewDispatcher(d.DB, logging.Component(d.Log, "notifications"))
	catalogSvc := catalog.NewService(d.DB, dispatcher, d.Publisher, logging.Component(d.Log, "catalog"), message)
	orderSvc := orders.NewService(d.DB, logging.Component(d.Log, "orders"))
	revenueSvc := revenue.NewService(d.DB, logging.Component(d.Log, "revenue"))
	cartSvc := carts.NewService(d.DB, logging.Component(d.Log, "carts"))

	router := gin.New()
	router.Use(
		logging.RequestID(),
		logging.Middleware(logging.Component(d.Log, "http")),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	common.RegisterRoutes(api, common.NewStatusHandler(d.DB))
	auth.RegisterRoutes(api, auth.NewHandler(userSvc, tokens, logging.Component(d.Log, "auth")), authMiddleware)
	users.RegisterRoutes(api, users.NewHandler(userSvc, limits), authMiddleware)
	catalog.RegisterRoutes(api, catalog.NewHandler(catalogSvc, limits), authMiddleware)
	orders.RegisterRoutes(api, orders.NewHandler(orderSvc, limits), authMiddleware)
	carts.RegisterRoutes(api, carts.NewHandler(cartSvc), authMiddleware)
	revenue.RegisterRoutes(api, revenue.NewHandler(revenueSvc), authMiddleware)
	notifications.RegisterRoutes(api, notifications.NewHandler(dispatcher, limits), authMiddleware)

	return &Server{Engine: router, Users: userSvc, Tokens: tokens}
}
